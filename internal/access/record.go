package access

// Kind distinguishes wrapped property reads/writes from wrapped method calls.
type Kind string

const (
	KindProperty Kind = "property"
	KindMethod   Kind = "method"
)

// Op is what the page did with the wrapped capability.
type Op string

const (
	OpGet  Op = "get"
	OpSet  Op = "set"
	OpCall Op = "call"
)

// Record describes a single intercepted access. Records are ephemeral:
// they feed the classifier and the ledger counter, then are dropped.
type Record struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"` // qualified, e.g. "HTMLCanvasElement.toDataURL"
	Op   Op     `json:"op"`
	Args []any  `json:"args,omitempty"`
}

// Key is the ledger key for this record: "{kind}:{qualifiedName}".
func (r Record) Key() string {
	return string(r.Kind) + ":" + r.Name
}

// Summary is the compact form attached to a stored fingerprinting attempt.
type Summary struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	Op   Op     `json:"op"`
}

func (r Record) Summary() Summary {
	return Summary{Kind: r.Kind, Name: r.Name, Op: r.Op}
}

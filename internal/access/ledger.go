package access

import "sync"

// Ledger counts every intercepted access, keyed by "{kind}:{qualifiedName}".
// Counts only ever grow; the whole table is replaced on an explicit reset.
type Ledger struct {
	mu     sync.RWMutex
	counts map[string]uint64
}

func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]uint64)}
}

// Observe increments the counter for the record's key and returns the new count.
func (l *Ledger) Observe(r Record) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[r.Key()]++
	return l.counts[r.Key()]
}

// Count returns the current count for a ledger key.
func (l *Ledger) Count(key string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[key]
}

// Len returns the number of distinct keys seen.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.counts)
}

// Snapshot returns a copy of the count table.
func (l *Ledger) Snapshot() map[string]uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]uint64, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Reset replaces the table with an empty one.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts = make(map[string]uint64)
}

package engine

import (
	"testing"
	"time"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/access"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/attemptlog"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/classify"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestEngine returns an engine with an injectable clock.
func newTestEngine(t *testing.T, opts Options) (*Engine, *time.Time) {
	t.Helper()
	if opts.SpoofSeed == 0 {
		opts.SpoofSeed = 1
	}
	e := New(opts)
	now := start
	e.now = func() time.Time { return now }
	return e, &now
}

func webglCall() access.Record {
	return access.Record{
		Kind: access.KindMethod,
		Name: "WebGLRenderingContext.getSupportedExtensions",
		Op:   access.OpCall,
	}
}

// Forty wrapped WebGL extension queries within ten seconds: exactly one
// stored attempt, forty ledger counts.
func TestFortyCallsScenario(t *testing.T) {
	var detected []attemptlog.Attempt
	e, now := newTestEngine(t, Options{
		OnDetected: func(a attemptlog.Attempt) { detected = append(detected, a) },
	})

	rec := webglCall()
	stored := 0
	for i := 0; i < 40; i++ {
		*now = start.Add(time.Duration(i) * 250 * time.Millisecond)
		out := e.Intercept("example.com", rec)
		if out.Recorded {
			stored++
		}
		if out.Technique != classify.TechniqueWebGL {
			t.Fatalf("call %d classified as %q", i, out.Technique)
		}
	}

	if stored != 1 {
		t.Errorf("stored %d attempts, want 1", stored)
	}
	if len(detected) != 1 {
		t.Errorf("OnDetected fired %d times, want 1", len(detected))
	}
	if len(detected) == 1 {
		if detected[0].Technique != classify.TechniqueWebGL || detected[0].Domain != "example.com" {
			t.Errorf("detected attempt = %+v", detected[0])
		}
	}
	if got := e.AccessCount(rec.Key()); got != 40 {
		t.Errorf("ledger count = %d, want 40", got)
	}
}

func TestResetMidSequence(t *testing.T) {
	e, now := newTestEngine(t, Options{})
	rec := webglCall()

	out := e.Intercept("example.com", rec)
	if !out.Recorded {
		t.Fatal("first access should record an attempt")
	}

	e.Reset()

	if got := e.AccessCount(rec.Key()); got != 0 {
		t.Errorf("ledger count after reset = %d, want 0", got)
	}
	if snap := e.Snapshot(); len(snap.Attempts) != 0 || snap.Stats.TotalAttempts != 0 {
		t.Errorf("snapshot after reset not empty: %+v", snap.Stats)
	}

	// One second later, still well inside what was the throttle window:
	// records as if no prior history existed.
	*now = start.Add(time.Second)
	out = e.Intercept("example.com", rec)
	if !out.Recorded {
		t.Error("access after reset should record; throttle window must restart")
	}
	if got := e.AccessCount(rec.Key()); got != 1 {
		t.Errorf("ledger count = %d, want 1", got)
	}
}

func TestUnknownAccessCountsButNeverStores(t *testing.T) {
	fired := false
	e, _ := newTestEngine(t, Options{
		OnDetected: func(attemptlog.Attempt) { fired = true },
	})

	rec := access.Record{Kind: access.KindProperty, Name: "Window.location", Op: access.OpGet}
	out := e.Intercept("example.com", rec)

	if out.Technique != "" || out.Recorded {
		t.Errorf("unclassified access produced outcome %+v", out)
	}
	if fired {
		t.Error("OnDetected fired for an unclassified access")
	}
	if got := e.AccessCount(rec.Key()); got != 1 {
		t.Errorf("ledger count = %d, want 1 (unknown accesses still count)", got)
	}
}

func TestReentrantAccessPassesThrough(t *testing.T) {
	e, _ := newTestEngine(t, Options{BlockingEnabled: true})
	rec := webglCall()

	restore := e.Guard().Enter()
	out := e.Intercept("example.com", rec)
	restore()

	if out.Recorded || out.Spoofed || out.Technique != "" {
		t.Errorf("re-entrant access was not a passthrough: %+v", out)
	}
	if got := e.AccessCount(rec.Key()); got != 0 {
		t.Errorf("re-entrant access was counted: %d", got)
	}
}

func TestBlockingDisabledNeverSpoofs(t *testing.T) {
	e, _ := newTestEngine(t, Options{BlockingEnabled: false})

	out := e.Intercept("example.com", access.Record{
		Kind: access.KindMethod, Name: "HTMLCanvasElement.toDataURL", Op: access.OpCall,
	})
	if out.Spoofed {
		t.Error("spoofed with blocking disabled")
	}
}

func TestBlockingEnabledSpoofsCanvasAndExtensions(t *testing.T) {
	e, _ := newTestEngine(t, Options{BlockingEnabled: true})

	out := e.Intercept("example.com", access.Record{
		Kind: access.KindMethod, Name: "HTMLCanvasElement.toDataURL", Op: access.OpCall,
	})
	if !out.Spoofed {
		t.Fatal("canvas export should be spoofed")
	}
	if e.Guard().Active() {
		t.Error("re-entrancy flag left set after spoof synthesis")
	}

	out = e.Intercept("example.com", webglCall())
	if !out.Spoofed {
		t.Error("extension query should be spoofed")
	}

	// Numeric parameter queries always forward.
	out = e.Intercept("example.com", access.Record{
		Kind: access.KindMethod, Name: "WebGLRenderingContext.getParameter", Op: access.OpCall,
	})
	if out.Spoofed {
		t.Error("numeric parameter query must not be spoofed")
	}
}

func TestPropertiesAreObservedNotSpoofed(t *testing.T) {
	e, _ := newTestEngine(t, Options{BlockingEnabled: true})

	out := e.Intercept("example.com", access.Record{
		Kind: access.KindProperty, Name: "Navigator.userAgent", Op: access.OpGet,
	})
	if out.Spoofed {
		t.Error("generic property reads must never be substituted")
	}
	if out.Technique != classify.TechniqueBrowser {
		t.Errorf("technique = %q", out.Technique)
	}
}

func TestApplySettings(t *testing.T) {
	e, _ := newTestEngine(t, Options{BlockingEnabled: true})

	enabled := true
	e.ApplySettings(SettingsUpdate{BlockingEnabled: &enabled})
	if !e.BlockingEnabled() {
		t.Fatal("settings push with blocking=true")
	}

	// Malformed push fails safe toward no interference.
	e.ApplySettings(SettingsUpdate{})
	if e.BlockingEnabled() {
		t.Error("malformed settings push must disable blocking")
	}
}

func TestInterceptRecoversPanickingEmitHook(t *testing.T) {
	e, _ := newTestEngine(t, Options{
		OnDetected: func(attemptlog.Attempt) { panic("sink bug") },
	})

	// Must not panic through to the caller; outcome degrades to forward.
	out := e.Intercept("example.com", webglCall())
	if out.Spoofed {
		t.Error("recovered outcome should delegate to the original")
	}
}

func TestSnapshotCarriesBaseline(t *testing.T) {
	base := Baseline{UserAgent: "Mozilla/5.0", Platform: "Linux x86_64", ScreenWidth: 1920}
	e, _ := newTestEngine(t, Options{Baseline: base})

	e.Intercept("example.com", webglCall())

	snap := e.Snapshot()
	if snap.Fingerprint != base {
		t.Errorf("snapshot baseline = %+v", snap.Fingerprint)
	}
	if len(snap.Attempts) != 1 || snap.Stats.TotalAttempts != 1 {
		t.Errorf("snapshot stats = %+v", snap.Stats)
	}
	if snap.Accesses[webglCall().Key()] != 1 {
		t.Errorf("snapshot accesses = %v", snap.Accesses)
	}
}

func TestInstallIsolatesNonConfigurable(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	caps := []Capability{
		{
			Name: "Navigator.userAgent", Kind: access.KindProperty, Configurable: true,
			Original: func(...any) (any, error) { return "Mozilla/5.0", nil },
		},
		{
			// Host refuses to redefine this one.
			Name: "Window.location", Kind: access.KindProperty, Configurable: false,
		},
		{
			Name: "Screen.width", Kind: access.KindProperty, Configurable: true,
			Original: func(...any) (any, error) { return 1920, nil },
		},
	}
	ins := e.Install(caps)

	if len(ins.Skipped) != 1 || ins.Skipped[0] != "Window.location" {
		t.Fatalf("Skipped = %v", ins.Skipped)
	}
	if !ins.Wrapped("Navigator.userAgent") || !ins.Wrapped("Screen.width") {
		t.Error("one failed capability aborted wrapping of the others")
	}

	v, err := ins.Get("example.com", "Screen.width")
	if err != nil || v != 1920 {
		t.Errorf("Get = %v, %v", v, err)
	}
	if got := e.AccessCount("property:Screen.width"); got != 1 {
		t.Errorf("ledger count = %d", got)
	}
}

// With blocking disabled, a wrapped call must return exactly what the
// unwrapped original returns for identical arguments.
func TestFailSafeForwarding(t *testing.T) {
	e, _ := newTestEngine(t, Options{BlockingEnabled: false})

	original := func(args ...any) (any, error) {
		return []string{"REAL_extension_1", "REAL_extension_2"}, nil
	}
	ins := e.Install([]Capability{{
		Name: "WebGLRenderingContext.getSupportedExtensions",
		Kind: access.KindMethod, Configurable: true, Original: original,
	}})

	wrapped, err := ins.Call("example.com", "WebGLRenderingContext.getSupportedExtensions")
	if err != nil {
		t.Fatal(err)
	}
	direct, _ := original()
	w, d := wrapped.([]string), direct.([]string)
	if len(w) != len(d) || w[0] != d[0] || w[1] != d[1] {
		t.Errorf("wrapped = %v, direct = %v", wrapped, direct)
	}
}

func TestCallSpoofsInsteadOfDelegating(t *testing.T) {
	e, _ := newTestEngine(t, Options{BlockingEnabled: true})

	originalCalled := false
	ins := e.Install([]Capability{{
		Name: "WebGLRenderingContext.getSupportedExtensions",
		Kind: access.KindMethod, Configurable: true,
		Original: func(...any) (any, error) {
			originalCalled = true
			return []string{"REAL_extension"}, nil
		},
	}})

	v, err := ins.Call("example.com", "WebGLRenderingContext.getSupportedExtensions")
	if err != nil {
		t.Fatal(err)
	}
	if originalCalled {
		t.Error("original invoked despite spoofing")
	}
	exts, ok := v.([]string)
	if !ok || len(exts) == 0 || exts[0] == "REAL_extension" {
		t.Errorf("spoofed value = %v", v)
	}
}

func TestSetDelegatesToOriginalSetter(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	var wrote any
	ins := e.Install([]Capability{{
		Name: "Document.title", Kind: access.KindProperty,
		Configurable: true, Settable: true,
		Set: func(v any) error { wrote = v; return nil },
	}})

	if err := ins.Set("example.com", "Document.title", "hello"); err != nil {
		t.Fatal(err)
	}
	if wrote != "hello" {
		t.Errorf("original setter saw %v", wrote)
	}
	if got := e.AccessCount("property:Document.title"); got != 1 {
		t.Errorf("set was not recorded: count = %d", got)
	}

	if err := ins.Set("example.com", "Document.title2", "x"); err == nil {
		t.Error("set on uninstalled capability should error")
	}
}

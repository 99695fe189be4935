// Package engine is the fingerprinting detection core: it records every
// intercepted API access, classifies it into a technique, throttles and
// stores detected attempts, and decides whether to substitute a spoofed
// value or delegate to the original implementation.
//
// One Engine instance exists per protected page context. Internal errors
// never escape to the caller; the safe default on any failure is "forward
// to the original implementation".
package engine

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/access"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/attemptlog"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/classify"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/reentry"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/spoof"
)

// Baseline describes the protected page context as the host reports it at
// startup. It rides along in every snapshot so downstream consumers can
// relate attempts to the environment they happened in.
type Baseline struct {
	UserAgent        string  `json:"user_agent,omitempty"`
	Platform         string  `json:"platform,omitempty"`
	Language         string  `json:"language,omitempty"`
	Timezone         string  `json:"timezone,omitempty"`
	ScreenWidth      int     `json:"screen_w,omitempty"`
	ScreenHeight     int     `json:"screen_h,omitempty"`
	DevicePixelRatio float64 `json:"device_pixel_ratio,omitempty"`
}

// Snapshot is the aggregate export pulled by the bridge on a fixed cadence.
type Snapshot struct {
	Fingerprint Baseline            `json:"fingerprint"`
	Attempts    []attemptlog.Attempt `json:"attempts"`
	Stats       attemptlog.Stats     `json:"stats"`
	Accesses    map[string]uint64    `json:"accesses"`
}

// Outcome is the interception decision returned to the wrapper: either a
// spoofed value, or an instruction to delegate to the original.
type Outcome struct {
	Technique string `json:"technique,omitempty"`
	Recorded  bool   `json:"attempt_recorded"`
	Spoofed   bool   `json:"spoofed"`
	Value     any    `json:"value,omitempty"`
}

// Options configures a new Engine. Zero values fall back to the built-in
// rule table and the reference limits (30 s window, 100 entries, 50 pairs).
type Options struct {
	Rules          []classify.Rule
	ThrottleWindow time.Duration
	MaxEntries     int
	MaxPairs       int
	Baseline       Baseline
	SpoofSeed      int64
	BlockingEnabled bool

	// OnDetected fires once per stored (non-throttled) attempt. The sink
	// fan-out hangs off this hook.
	OnDetected func(attemptlog.Attempt)
}

type Engine struct {
	ledger     *access.Ledger
	classifier *classify.Classifier
	attempts   *attemptlog.Log
	guard      reentry.Guard
	spoofer    *spoof.Provider
	blocking   atomic.Bool

	baselineMu sync.RWMutex
	baseline   Baseline
	onDetected func(attemptlog.Attempt)

	// now is swappable for tests.
	now func() time.Time
}

func New(opts Options) *Engine {
	rules := opts.Rules
	if rules == nil {
		rules = classify.DefaultRules()
	}
	window := opts.ThrottleWindow
	if window <= 0 {
		window = attemptlog.DefaultWindow
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = attemptlog.DefaultMaxEntries
	}
	maxPairs := opts.MaxPairs
	if maxPairs <= 0 {
		maxPairs = attemptlog.DefaultMaxPairs
	}
	seed := opts.SpoofSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		ledger:     access.NewLedger(),
		classifier: classify.New(rules),
		attempts:   attemptlog.NewWithLimits(window, maxEntries, maxPairs),
		baseline:   opts.Baseline,
		onDetected: opts.OnDetected,
		now:        time.Now,
	}
	e.blocking.Store(opts.BlockingEnabled)
	e.spoofer = spoof.NewProvider(e.BlockingEnabled, &e.guard, seed)
	return e
}

// Intercept runs the full wrapper pipeline for one intercepted access:
// ledger count, classification, throttled attempt append + emit, spoof
// decision. A zero Outcome means "delegate to the original untouched".
//
// While the re-entrancy guard is active the access belongs to the engine's
// own probing and passes straight through: no count, no attempt, no spoof.
func (e *Engine) Intercept(domain string, rec access.Record) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			// Never let an internal error reach the page. Under-report
			// and forward instead.
			log.Printf("engine: recovered interception failure for %s: %v", rec.Name, r)
			out = Outcome{}
		}
	}()

	if e.guard.Active() {
		return Outcome{}
	}

	e.ledger.Observe(rec)

	technique, matched := e.classifier.Classify(rec)
	if matched {
		out.Technique = technique
		summary := rec.Summary()
		att, stored := e.attempts.Record(technique, domain, &summary, e.now())
		if stored {
			out.Recorded = true
			if e.onDetected != nil {
				e.onDetected(att)
			}
		}
	}

	// Spoofing is defined only for wrapped methods; generic properties
	// are observed, never substituted.
	if rec.Kind == access.KindMethod {
		if v, ok := e.spoofer.ForRecord(rec); ok {
			out.Spoofed = true
			out.Value = v
		}
	}
	return out
}

// UpdateBlockingEnabled applies a settings push immediately.
func (e *Engine) UpdateBlockingEnabled(enabled bool) {
	e.blocking.Store(enabled)
}

// BlockingEnabled reports the current user setting.
func (e *Engine) BlockingEnabled() bool {
	return e.blocking.Load()
}

// SettingsUpdate is the inbound settings-push payload.
type SettingsUpdate struct {
	BlockingEnabled *bool `json:"blocking_enabled"`
}

// ApplySettings handles a settings push. A payload missing the expected
// field is treated as "blocking disabled": the engine fails safe toward
// not interfering with page behavior rather than toward maximum privacy.
func (e *Engine) ApplySettings(u SettingsUpdate) {
	if u.BlockingEnabled == nil {
		log.Printf("engine: malformed settings push, disabling blocking")
		e.blocking.Store(false)
		return
	}
	e.blocking.Store(*u.BlockingEnabled)
}

// Reset clears the access counts, the attempt log, and every throttle
// window in one synchronous call.
func (e *Engine) Reset() {
	e.ledger.Reset()
	e.attempts.Reset()
}

// Compact runs the attempt-log compaction pass. Scheduled externally on a
// fixed cadence (30 s reference).
func (e *Engine) Compact() {
	e.attempts.Compact()
}

// SetBaseline replaces the reported page-context baseline. The injected
// script reports it once after installation.
func (e *Engine) SetBaseline(b Baseline) {
	e.baselineMu.Lock()
	e.baseline = b
	e.baselineMu.Unlock()
}

// Snapshot exports the current state for the storage/UI collaborators.
// At most the 100 most recent attempts are included even between
// compaction passes.
func (e *Engine) Snapshot() Snapshot {
	snap := e.attempts.Snapshot()
	if len(snap.Attempts) > attemptlog.DefaultMaxEntries {
		snap.Attempts = snap.Attempts[len(snap.Attempts)-attemptlog.DefaultMaxEntries:]
	}
	e.baselineMu.RLock()
	base := e.baseline
	e.baselineMu.RUnlock()
	return Snapshot{
		Fingerprint: base,
		Attempts:    snap.Attempts,
		Stats:       snap.Stats,
		Accesses:    e.ledger.Snapshot(),
	}
}

// AccessCount returns the ledger count for a key, for tests and the bridge.
func (e *Engine) AccessCount(key string) uint64 {
	return e.ledger.Count(key)
}

// Guard exposes the re-entrancy guard to embedders that run their own
// engine-internal probes.
func (e *Engine) Guard() *reentry.Guard {
	return &e.guard
}

// Package attemptlog keeps the bounded, rate-limited history of detected
// fingerprinting attempts. Each (technique, domain) pair stores at most one
// attempt per throttle window; periodic compaction bounds total retention.
package attemptlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/access"
)

const (
	// DefaultWindow is the minimum interval between two stored attempts
	// for the same (technique, domain) pair.
	DefaultWindow = 30 * time.Second

	// DefaultMaxEntries caps raw retention before pair dedup kicks in.
	DefaultMaxEntries = 100

	// DefaultMaxPairs caps distinct (domain, technique) pairs kept after
	// compaction, most recent first.
	DefaultMaxPairs = 50
)

// Attempt is a stored detection. Append-only within a page lifetime;
// replaced wholesale on reset. Durability belongs to the sinks.
type Attempt struct {
	ID              string          `json:"id"`
	Technique       string          `json:"technique"`
	Domain          string          `json:"domain"`
	TimestampMillis int64           `json:"timestamp_ms"`
	Access          *access.Summary `json:"access,omitempty"`
}

// Stats summarizes everything recorded since the last reset, including
// attempts that compaction has since dropped.
type Stats struct {
	TotalAttempts int            `json:"total_attempts"`
	Techniques    map[string]int `json:"techniques"`
}

// Snapshot is an immutable export of the current log state.
type Snapshot struct {
	Attempts []Attempt `json:"attempts"`
	Stats    Stats     `json:"stats"`
}

// Log is safe for concurrent use. Throttling uses one rate.Limiter per
// (technique, domain) pair with a single-token bucket, so each pair admits
// one stored attempt per window.
type Log struct {
	mu         sync.Mutex
	window     time.Duration
	maxEntries int
	maxPairs   int

	entries    []Attempt
	limiters   map[string]*rate.Limiter
	total      int
	byTechnique map[string]int
}

func New() *Log {
	return NewWithLimits(DefaultWindow, DefaultMaxEntries, DefaultMaxPairs)
}

func NewWithLimits(window time.Duration, maxEntries, maxPairs int) *Log {
	return &Log{
		window:      window,
		maxEntries:  maxEntries,
		maxPairs:    maxPairs,
		limiters:    make(map[string]*rate.Limiter),
		byTechnique: make(map[string]int),
	}
}

func pairKey(technique, domain string) string {
	return technique + "|" + domain
}

// Record appends a new attempt unless the pair is still inside its throttle
// window. It returns the stored attempt and true on success; false means the
// detection was suppressed and the caller must not emit an event for it.
func (l *Log) Record(technique, domain string, summary *access.Summary, now time.Time) (Attempt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pairKey(technique, domain)
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.window), 1)
		l.limiters[key] = lim
	}
	if !lim.AllowN(now, 1) {
		return Attempt{}, false
	}

	att := Attempt{
		ID:              uuid.NewString(),
		Technique:       technique,
		Domain:          domain,
		TimestampMillis: now.UnixMilli(),
		Access:          summary,
	}
	l.entries = append(l.entries, att)
	l.total++
	l.byTechnique[technique]++
	return att, true
}

// Compact bounds retention: keep the most recent maxEntries, then if the
// surviving entries span more than maxPairs distinct (domain, technique)
// pairs, keep only the most recent entry of each of the most recent
// maxPairs pairs. Idempotent and cheap enough for a fixed 30 s cadence.
func (l *Log) Compact() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) > l.maxEntries {
		kept := make([]Attempt, l.maxEntries)
		copy(kept, l.entries[len(l.entries)-l.maxEntries:])
		l.entries = kept
	}

	pairs := make(map[string]struct{}, len(l.entries))
	for _, a := range l.entries {
		pairs[pairKey(a.Technique, a.Domain)] = struct{}{}
	}
	if len(pairs) <= l.maxPairs {
		return
	}

	// Newest entry per pair, newest pairs first.
	seen := make(map[string]struct{}, l.maxPairs)
	deduped := make([]Attempt, 0, l.maxPairs)
	for i := len(l.entries) - 1; i >= 0 && len(deduped) < l.maxPairs; i-- {
		a := l.entries[i]
		key := pairKey(a.Technique, a.Domain)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, a)
	}
	// Restore chronological order.
	for i, j := 0, len(deduped)-1; i < j; i, j = i+1, j-1 {
		deduped[i], deduped[j] = deduped[j], deduped[i]
	}
	l.entries = deduped
}

// Len returns the number of retained attempts.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot copies out the retained attempts and running stats. Export never
// mutates log state; compaction runs only on its own scheduled cadence.
func (l *Log) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempts := make([]Attempt, len(l.entries))
	copy(attempts, l.entries)
	techniques := make(map[string]int, len(l.byTechnique))
	for k, v := range l.byTechnique {
		techniques[k] = v
	}
	return Snapshot{
		Attempts: attempts,
		Stats:    Stats{TotalAttempts: l.total, Techniques: techniques},
	}
}

// Reset replaces all log state, including throttle windows, in one step.
// A pair seen immediately after reset records as if it was never seen.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.limiters = make(map[string]*rate.Limiter)
	l.total = 0
	l.byTechnique = make(map[string]int)
}

// Package sink fans detected fingerprinting attempts out to the external
// storage collaborators. The engine core owns nothing durable; each sink
// decides how attempts become counters or records on its side.
package sink

import (
	"context"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/attemptlog"
)

type Sink interface {
	Start(ctx context.Context) error
	Enqueue(a attemptlog.Attempt) error
	Close() error
	Name() string // sink name for metrics and logging
}

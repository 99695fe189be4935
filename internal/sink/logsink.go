package sink

import (
	"context"
	"encoding/json"
	"log"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/attemptlog"
)

type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Start(ctx context.Context) error { return nil }

func (s *LogSink) Enqueue(a attemptlog.Attempt) error {
	b, _ := json.Marshal(a)
	log.Printf("attempt %s", string(b))
	return nil
}

func (s *LogSink) Close() error { return nil }

func (s *LogSink) Name() string { return "log" }

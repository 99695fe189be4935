package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/attemptlog"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/engine"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/sink"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/pkg/config"
)

type mockSink struct {
	name     string
	attempts []attemptlog.Attempt
	enqErr   error
}

func (m *mockSink) Start(ctx context.Context) error { return nil }

func (m *mockSink) Enqueue(a attemptlog.Attempt) error {
	if m.enqErr != nil {
		return m.enqErr
	}
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *mockSink) Close() error { return nil }

func (m *mockSink) Name() string { return m.name }

func TestInitializeSinks(t *testing.T) {
	ctx := context.Background()

	t.Run("log sink", func(t *testing.T) {
		sinks := initializeSinks(ctx, config.Config{Outputs: []string{"log"}})
		if len(sinks) != 1 {
			t.Fatalf("expected 1 sink, got %d", len(sinks))
		}
		if sinks[0].Name() != "log" {
			t.Errorf("expected log sink, got %s", sinks[0].Name())
		}
		closeSinks(sinks)
	})

	t.Run("unknown output type", func(t *testing.T) {
		sinks := initializeSinks(ctx, config.Config{Outputs: []string{"unknown"}})
		if len(sinks) != 0 {
			t.Errorf("expected 0 sinks for unknown type, got %d", len(sinks))
		}
	})

	t.Run("unknown skipped among known", func(t *testing.T) {
		sinks := initializeSinks(ctx, config.Config{Outputs: []string{"log", "unknown"}})
		if len(sinks) != 1 {
			t.Errorf("expected 1 sink, got %d", len(sinks))
		}
		closeSinks(sinks)
	})
}

func TestCreateDetectedHook(t *testing.T) {
	t.Run("fans out to all sinks", func(t *testing.T) {
		mock1 := &mockSink{name: "sink1"}
		mock2 := &mockSink{name: "sink2"}
		hook := createDetectedHook([]sink.Sink{mock1, mock2}, nil)

		hook(attemptlog.Attempt{Technique: "Canvas Fingerprinting", Domain: "tracker.example"})

		if len(mock1.attempts) != 1 || len(mock2.attempts) != 1 {
			t.Errorf("fan-out reached %d/%d sinks, want 1/1", len(mock1.attempts), len(mock2.attempts))
		}
	})

	t.Run("failing sink does not block the rest", func(t *testing.T) {
		failing := &mockSink{name: "failing", enqErr: fmt.Errorf("enqueue failed")}
		working := &mockSink{name: "working"}
		hook := createDetectedHook([]sink.Sink{failing, working}, nil)

		hook(attemptlog.Attempt{Technique: "WebGL Fingerprinting", Domain: "tracker.example"})

		if len(working.attempts) != 1 {
			t.Error("working sink should receive the attempt despite the failing one")
		}
	})

	t.Run("no sinks", func(t *testing.T) {
		hook := createDetectedHook(nil, nil)
		hook(attemptlog.Attempt{}) // must not panic
	})
}

func TestRunTestModeStoresAttempts(t *testing.T) {
	sk := &mockSink{name: "capture"}
	eng := engine.New(engine.Options{
		BlockingEnabled: true,
		SpoofSeed:       1,
		OnDetected:      createDetectedHook([]sink.Sink{sk}, nil),
	})

	runTestMode(eng)

	// One stored attempt per fresh (technique, domain) pair; the repeat
	// canvas access on tracker.example lands inside the throttle window.
	if len(sk.attempts) == 0 {
		t.Fatal("test mode stored no attempts")
	}
	seen := make(map[string]bool)
	for _, a := range sk.attempts {
		key := a.Technique + "|" + a.Domain
		if seen[key] {
			t.Errorf("pair %s stored twice inside the throttle window", key)
		}
		seen[key] = true
	}
}

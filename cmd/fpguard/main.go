package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/attemptlog"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/bridge"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/engine"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/metrics"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/sink"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/pkg/config"
)

func main() {
	testMode := flag.Bool("test", false, "drive synthetic accesses through the pipeline and exit")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appMetrics := metrics.NewMetrics()
	metricsServer := metrics.NewServer(metrics.LoadConfig())
	if err := metricsServer.Start(ctx); err != nil {
		log.Fatalf("metrics server: %v", err)
	}

	sinks := initializeSinks(ctx, cfg)
	defer closeSinks(sinks)

	eng := engine.New(engine.Options{
		ThrottleWindow:  cfg.ThrottleWindow,
		MaxEntries:      cfg.MaxAttempts,
		MaxPairs:        cfg.MaxPairs,
		BlockingEnabled: cfg.BlockingEnabled,
		OnDetected:      createDetectedHook(sinks, appMetrics),
	})

	if *testMode {
		runTestMode(eng)
		return
	}

	srv := bridge.NewServer(bridge.Env{
		Cfg:     cfg,
		Engine:  eng,
		Metrics: appMetrics,
	})

	go func() {
		log.Printf("fpguard bridge listening on %s", cfg.BridgeAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("bridge server: %v", err)
		}
	}()

	go runMaintenance(ctx, eng, appMetrics, cfg)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
}

// initializeSinks builds and starts the sinks named in cfg.Outputs.
// Unknown names are logged and skipped; a sink that fails to start is
// dropped rather than aborting the rest.
func initializeSinks(ctx context.Context, cfg config.Config) []sink.Sink {
	var sinks []sink.Sink
	for _, output := range cfg.Outputs {
		var s sink.Sink
		switch output {
		case "log":
			s = sink.NewLogSink()
		case "kafka":
			s = sink.NewKafkaSinkFromEnv()
		case "postgres":
			s = sink.NewPGSink(cfg.PGDSN, cfg.PGTable)
		case "redis":
			s = sink.NewRedisSink(cfg.RedisURL)
		default:
			log.Printf("unknown output type %q, skipping", output)
			continue
		}
		if err := s.Start(ctx); err != nil {
			log.Printf("failed to start %s sink: %v", s.Name(), err)
			continue
		}
		log.Printf("started %s sink", s.Name())
		sinks = append(sinks, s)
	}
	return sinks
}

func closeSinks(sinks []sink.Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Printf("closing %s sink: %v", s.Name(), err)
		}
	}
}

// createDetectedHook fans stored attempts out to every sink. A failing
// sink never blocks the others, and never surfaces to the interception
// path.
func createDetectedHook(sinks []sink.Sink, m *metrics.Metrics) func(attemptlog.Attempt) {
	return func(a attemptlog.Attempt) {
		for _, s := range sinks {
			if err := s.Enqueue(a); err != nil {
				log.Printf("%s sink enqueue: %v", s.Name(), err)
				if m != nil {
					m.IncrementSinkError(s.Name())
				}
			}
		}
	}
}

// runMaintenance owns the periodic compaction and export ticks.
func runMaintenance(ctx context.Context, eng *engine.Engine, m *metrics.Metrics, cfg config.Config) {
	compact := time.NewTicker(cfg.CompactInterval)
	export := time.NewTicker(cfg.ExportInterval)
	defer compact.Stop()
	defer export.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-compact.C:
			eng.Compact()
			m.CompactionRuns.Inc()
		case <-export.C:
			snap := eng.Snapshot()
			m.RetainedAttempts.Set(float64(len(snap.Attempts)))
		}
	}
}

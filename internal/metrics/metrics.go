package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the detection engine and its
// bridge surface.
type Metrics struct {
	// Counters
	Accesses       *prometheus.CounterVec
	Detections     *prometheus.CounterVec
	Throttled      *prometheus.CounterVec
	Spoofs         *prometheus.CounterVec
	SinkErrors     *prometheus.CounterVec
	CompactionRuns prometheus.Counter
	HTTPRequests   *prometheus.CounterVec

	// Gauges
	RetainedAttempts prometheus.Gauge

	// Histograms
	HTTPDuration *prometheus.HistogramVec
}

// Config holds configuration for the metrics server.
type Config struct {
	Enabled    bool
	Addr       string
	TLSCert    string
	TLSKey     string
	ClientCA   string
	RequireTLS bool
}

// LoadConfig loads metrics configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Enabled:    getBool("METRICS_ENABLED", false),
		Addr:       getOr("METRICS_ADDR", "127.0.0.1:9090"),
		TLSCert:    getOr("METRICS_TLS_CERT", ""),
		TLSKey:     getOr("METRICS_TLS_KEY", ""),
		ClientCA:   getOr("METRICS_CLIENT_CA", ""),
		RequireTLS: getBool("METRICS_REQUIRE_TLS", false),
	}
}

// NewMetrics creates and registers all engine metrics.
func NewMetrics() *Metrics {
	m := newUnregistered()

	prometheus.MustRegister(m.Accesses)
	prometheus.MustRegister(m.Detections)
	prometheus.MustRegister(m.Throttled)
	prometheus.MustRegister(m.Spoofs)
	prometheus.MustRegister(m.SinkErrors)
	prometheus.MustRegister(m.CompactionRuns)
	prometheus.MustRegister(m.HTTPRequests)
	prometheus.MustRegister(m.RetainedAttempts)
	prometheus.MustRegister(m.HTTPDuration)

	return m
}

func newUnregistered() *Metrics {
	return &Metrics{
		Accesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fpguard_accesses_total",
				Help: "Intercepted API accesses by kind",
			},
			[]string{"kind"},
		),

		Detections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fpguard_detections_total",
				Help: "Stored fingerprinting attempts by technique",
			},
			[]string{"technique"},
		),

		Throttled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fpguard_throttled_total",
				Help: "Detections suppressed by the per-pair throttle window",
			},
			[]string{"technique"},
		),

		Spoofs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fpguard_spoofs_total",
				Help: "Substituted return values by surface",
			},
			[]string{"surface"},
		),

		SinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fpguard_sink_errors_total",
				Help: "Errors writing attempts to a sink",
			},
			[]string{"sink"},
		),

		CompactionRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fpguard_compaction_runs_total",
				Help: "Attempt-log compaction passes",
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fpguard_http_requests_total",
				Help: "Bridge HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		RetainedAttempts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fpguard_retained_attempts",
				Help: "Attempts currently retained in the in-memory log",
			},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fpguard_http_duration_seconds",
				Help:    "Bridge HTTP request duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"endpoint", "method"},
		),
	}
}

// Server serves /metrics, optionally behind TLS/mTLS.
type Server struct {
	server *http.Server
	config Config
}

func NewServer(config Config) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:         config.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if config.RequireTLS && config.TLSCert != "" && config.TLSKey != "" {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if config.ClientCA != "" {
			clientCAs, err := loadCertPool(config.ClientCA)
			if err != nil {
				log.Printf("metrics: failed to load client CA: %v", err)
			} else {
				tlsConfig.ClientCAs = clientCAs
				tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
			}
		}
		srv.TLSConfig = tlsConfig
	}

	return &Server{server: srv, config: config}
}

func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		log.Printf("metrics: disabled (METRICS_ENABLED=false)")
		return nil
	}

	go func() {
		var err error
		if s.config.RequireTLS && s.config.TLSCert != "" && s.config.TLSKey != "" {
			log.Printf("metrics: HTTPS server listening on %s", s.config.Addr)
			err = s.server.ListenAndServeTLS(s.config.TLSCert, s.config.TLSKey)
		} else {
			log.Printf("metrics: HTTP server listening on %s", s.config.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Printf("metrics: server error: %v", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func loadCertPool(certFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(certFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", certFile)
	}
	return pool, nil
}

func getOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Convenience methods used by the bridge and the fan-out.

func (m *Metrics) IncrementAccess(kind string) {
	m.Accesses.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementDetection(technique string) {
	m.Detections.WithLabelValues(technique).Inc()
}

func (m *Metrics) IncrementThrottled(technique string) {
	m.Throttled.WithLabelValues(technique).Inc()
}

func (m *Metrics) IncrementSpoof(surface string) {
	m.Spoofs.WithLabelValues(surface).Inc()
}

func (m *Metrics) IncrementSinkError(sink string) {
	m.SinkErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncrementHTTPRequests(endpoint, method, status string) {
	m.HTTPRequests.WithLabelValues(endpoint, method, status).Inc()
}

func (m *Metrics) ObserveHTTPDuration(endpoint, method string, duration time.Duration) {
	m.HTTPDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

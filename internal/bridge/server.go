// Package bridge is the HTTP surface the embedding environment calls
// through: the injected page script relays intercepted accesses here and
// gets back spoof decisions, and the external storage/UI collaborators
// pull aggregated snapshots. The engine core itself stays wire-free.
package bridge

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/engine"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/metrics"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/pkg/config"
)

// Env carries the handlers' dependencies.
type Env struct {
	Cfg     config.Config
	Engine  *engine.Engine
	Metrics *metrics.Metrics
}

// NewRouter builds the bridge router.
func NewRouter(e Env) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(10 * time.Second))
	if e.Metrics != nil {
		r.Use(metricsMiddleware(e.Metrics))
	}

	// The injected script posts from arbitrary page origins.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", e.Healthz)
	r.Get("/readyz", e.Readyz)
	r.Get("/inject.js", e.InjectScript)

	r.Route("/v0", func(r chi.Router) {
		r.Post("/access", e.Access)
		r.Post("/baseline", e.Baseline)
		r.Post("/settings", e.Settings)
		r.Post("/reset", e.Reset)
		r.Get("/snapshot", e.SnapshotHandler)
	})

	return r
}

// NewServer wraps the router in an http.Server with sane timeouts.
func NewServer(e Env) *http.Server {
	return &http.Server{
		Addr:         e.Cfg.BridgeAddr,
		Handler:      NewRouter(e),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// metricsMiddleware counts and times every bridge request.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			m.IncrementHTTPRequests(r.URL.Path, r.Method, itoa(ww.Status()))
			m.ObserveHTTPDuration(r.URL.Path, r.Method, time.Since(start))
		})
	}
}

func itoa(n int) string {
	if n == 0 {
		return "200"
	}
	var b [4]byte
	i := len(b)
	for n > 0 && i > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

package bridge

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/access"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/assets"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/engine"
)

// accessRequest is the wire form the injected script posts per intercepted
// access. Domain travels alongside the record fields because the bridge
// serves every page the browser has open.
type accessRequest struct {
	Domain string      `json:"domain"`
	Kind   access.Kind `json:"kind"`
	Name   string      `json:"name"`
	Op     access.Op   `json:"op"`
	Args   []any       `json:"args,omitempty"`
}

func (r accessRequest) record() access.Record {
	return access.Record{Kind: r.Kind, Name: r.Name, Op: r.Op, Args: r.Args}
}

// Access relays one intercepted access through the engine and returns the
// interception decision. Decode failures answer with a forward-to-original
// outcome rather than an error status: the wrapper must never break a page.
func (e Env) Access(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[bridge] bad access payload: %v", err)
		writeJSON(w, http.StatusOK, engine.Outcome{})
		return
	}
	if e.Metrics != nil {
		e.Metrics.IncrementAccess(string(req.Kind))
	}
	out := e.Engine.Intercept(req.Domain, req.record())
	if e.Metrics != nil {
		if out.Recorded {
			e.Metrics.IncrementDetection(out.Technique)
		} else if out.Technique != "" {
			e.Metrics.IncrementThrottled(out.Technique)
		}
		if out.Spoofed {
			e.Metrics.IncrementSpoof(req.Name)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Baseline stores the genuine values captured by the page script before any
// wrapper was installed.
func (e Env) Baseline(w http.ResponseWriter, r *http.Request) {
	var b engine.Baseline
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		log.Printf("[bridge] bad baseline payload: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	e.Engine.SetBaseline(b)
	w.WriteHeader(http.StatusNoContent)
}

// Settings applies a settings update. A malformed or empty payload degrades
// to blocking disabled, mirroring what ApplySettings does for a missing flag.
func (e Env) Settings(w http.ResponseWriter, r *http.Request) {
	var u engine.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		log.Printf("[bridge] bad settings payload, disabling blocking: %v", err)
		u = engine.SettingsUpdate{}
	}
	e.Engine.ApplySettings(u)
	writeJSON(w, http.StatusOK, map[string]bool{
		"blocking_enabled": e.Engine.BlockingEnabled(),
	})
}

// Reset clears counts, attempts, and throttle state.
func (e Env) Reset(w http.ResponseWriter, _ *http.Request) {
	e.Engine.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// SnapshotHandler returns the aggregate export: baseline fingerprint,
// retained attempts, per-technique stats, and the access ledger.
func (e Env) SnapshotHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, e.Engine.Snapshot())
}

// InjectScript serves the page-side wrapper script.
func (e Env) InjectScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(assets.InjectJS)
}

func (e Env) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (e Env) Readyz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[bridge] encode response: %v", err)
	}
}

package main

import (
	"log"
	"time"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/access"
	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/engine"
)

type testAccess struct {
	domain string
	record access.Record
}

// generateTestAccesses covers every detection surface plus an uncategorized
// access, so a test run exercises classification, throttling, and spoofing.
func generateTestAccesses() []testAccess {
	return []testAccess{
		{
			domain: "tracker.example",
			record: access.Record{Kind: access.KindMethod, Name: "HTMLCanvasElement.toDataURL", Op: access.OpCall},
		},
		{
			domain: "tracker.example",
			record: access.Record{Kind: access.KindMethod, Name: "WebGLRenderingContext.getSupportedExtensions", Op: access.OpCall},
		},
		{
			domain: "tracker.example",
			record: access.Record{Kind: access.KindProperty, Name: "Navigator.userAgent", Op: access.OpGet},
		},
		{
			domain: "tracker.example",
			record: access.Record{Kind: access.KindProperty, Name: "Navigator.hardwareConcurrency", Op: access.OpGet},
		},
		{
			domain: "tracker.example",
			record: access.Record{Kind: access.KindProperty, Name: "Screen.colorDepth", Op: access.OpGet},
		},
		{
			domain: "other.example",
			record: access.Record{Kind: access.KindMethod, Name: "HTMLCanvasElement.toDataURL", Op: access.OpCall},
		},
		{
			// Same pair again inside the throttle window: counted, not stored.
			domain: "tracker.example",
			record: access.Record{Kind: access.KindMethod, Name: "CanvasRenderingContext2D.getImageData", Op: access.OpCall},
		},
		{
			domain: "tracker.example",
			record: access.Record{Kind: access.KindProperty, Name: "Document.title", Op: access.OpGet},
		},
	}
}

// runTestMode drives the synthetic accesses through the full pipeline so
// the configured sinks can be checked end to end.
func runTestMode(eng *engine.Engine) {
	log.Println("TEST MODE: driving synthetic accesses...")

	accesses := generateTestAccesses()
	for i, a := range accesses {
		out := eng.Intercept(a.domain, a.record)
		log.Printf("access %d/%d %s on %s: technique=%q recorded=%v spoofed=%v",
			i+1, len(accesses), a.record.Name, a.domain, out.Technique, out.Recorded, out.Spoofed)
		if i < len(accesses)-1 {
			time.Sleep(100 * time.Millisecond)
		}
	}

	snap := eng.Snapshot()
	log.Printf("TEST MODE: done. attempts stored=%d, total observed=%d, ledger keys=%d",
		len(snap.Attempts), snap.Stats.TotalAttempts, len(snap.Accesses))
}

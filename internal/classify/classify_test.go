package classify

import (
	"testing"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/access"
)

func rec(kind access.Kind, name string, op access.Op) access.Record {
	return access.Record{Kind: kind, Name: name, Op: op}
}

func TestClassifyDefaultRules(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		rec     access.Record
		want    string
		wantHit bool
	}{
		{
			name:    "canvas toDataURL",
			rec:     rec(access.KindMethod, "HTMLCanvasElement.toDataURL", access.OpCall),
			want:    TechniqueCanvas,
			wantHit: true,
		},
		{
			name:    "canvas getImageData",
			rec:     rec(access.KindMethod, "CanvasRenderingContext2D.getImageData", access.OpCall),
			want:    TechniqueCanvas,
			wantHit: true,
		},
		{
			name:    "offscreen canvas export",
			rec:     rec(access.KindMethod, "OffscreenCanvas.convertToBlob", access.OpCall),
			want:    TechniqueCanvas,
			wantHit: true,
		},
		{
			name:    "webgl getParameter",
			rec:     rec(access.KindMethod, "WebGLRenderingContext.getParameter", access.OpCall),
			want:    TechniqueWebGL,
			wantHit: true,
		},
		{
			name:    "webgl2 extension list",
			rec:     rec(access.KindMethod, "WebGL2RenderingContext.getSupportedExtensions", access.OpCall),
			want:    TechniqueWebGL,
			wantHit: true,
		},
		{
			name:    "navigator user agent",
			rec:     rec(access.KindProperty, "Navigator.userAgent", access.OpGet),
			want:    TechniqueBrowser,
			wantHit: true,
		},
		{
			name:    "navigator plugins",
			rec:     rec(access.KindProperty, "Navigator.plugins", access.OpGet),
			want:    TechniqueBrowser,
			wantHit: true,
		},
		{
			name:    "audio context",
			rec:     rec(access.KindMethod, "OfflineAudioContext.startRendering", access.OpCall),
			want:    TechniqueAudio,
			wantHit: true,
		},
		{
			name:    "battery query",
			rec:     rec(access.KindMethod, "Navigator.getBattery", access.OpCall),
			want:    TechniqueHardware,
			wantHit: true,
		},
		{
			name:    "gamepad enumeration",
			rec:     rec(access.KindMethod, "Navigator.getGamepads", access.OpCall),
			want:    TechniqueHardware,
			wantHit: true,
		},
		{
			name:    "screen width",
			rec:     rec(access.KindProperty, "Screen.width", access.OpGet),
			want:    TechniqueScreen,
			wantHit: true,
		},
		{
			name:    "window device pixel ratio",
			rec:     rec(access.KindProperty, "Window.devicePixelRatio", access.OpGet),
			want:    TechniqueScreen,
			wantHit: true,
		},
		{
			name:    "window inner height",
			rec:     rec(access.KindProperty, "Window.innerHeight", access.OpGet),
			want:    TechniqueScreen,
			wantHit: true,
		},
		{
			name:    "unrelated window property",
			rec:     rec(access.KindProperty, "Window.location", access.OpGet),
			wantHit: false,
		},
		{
			name:    "unrelated navigator property",
			rec:     rec(access.KindProperty, "Navigator.onLine", access.OpGet),
			wantHit: false,
		},
		{
			name:    "non-pixel canvas call",
			rec:     rec(access.KindMethod, "CanvasRenderingContext2D.fillRect", access.OpCall),
			wantHit: false,
		},
		{
			name:    "empty record",
			rec:     access.Record{},
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := c.Classify(tt.rec)
			if hit != tt.wantHit {
				t.Fatalf("Classify hit = %v, want %v", hit, tt.wantHit)
			}
			if hit && got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

// Navigator.hardwareConcurrency matches both the navigator enumeration rule
// and the generic hardware rule; the earlier-registered rule must win.
func TestClassifyFirstMatchWins(t *testing.T) {
	c := Default()

	r := rec(access.KindProperty, "Navigator.hardwareConcurrency", access.OpGet)
	got, hit := c.Classify(r)
	if !hit {
		t.Fatal("expected a match")
	}
	if got != TechniqueBrowser {
		t.Errorf("Classify = %q, want earlier rule %q", got, TechniqueBrowser)
	}

	// Same overlap, constructed explicitly.
	ordered := New([]Rule{
		{Name: "first", Match: func(access.Record) bool { return true }},
		{Name: "second", Match: func(access.Record) bool { return true }},
	})
	if got, _ := ordered.Classify(r); got != "first" {
		t.Errorf("first-match-wins violated: got %q", got)
	}
}

func TestClassifyIsTotal(t *testing.T) {
	// A panicking predicate and a nil predicate must not escape.
	c := New([]Rule{
		{Name: "boom", Match: func(access.Record) bool { panic("predicate bug") }},
		{Name: "nil", Match: nil},
		{Name: "fallback", Match: func(r access.Record) bool { return r.Name == "x" }},
	})

	if _, hit := c.Classify(access.Record{Name: "unmatched"}); hit {
		t.Error("expected no match")
	}
	got, hit := c.Classify(access.Record{Name: "x"})
	if !hit || got != "fallback" {
		t.Errorf("Classify = %q hit=%v, want fallback after panicking rule", got, hit)
	}
}

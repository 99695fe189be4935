// Package classify maps intercepted API accesses to named fingerprinting
// techniques. Classification is a pure function over an ordered rule table:
// the first matching rule wins, unknown access patterns classify as none.
package classify

import (
	"strings"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/access"
)

// Technique names reported to the attempt log and to sinks.
const (
	TechniqueCanvas   = "Canvas Fingerprinting"
	TechniqueWebGL    = "WebGL Fingerprinting"
	TechniqueBrowser  = "Browser Enumeration"
	TechniqueAudio    = "Audio Fingerprinting"
	TechniqueHardware = "Hardware Enumeration"
	TechniqueScreen   = "Screen Geometry"
)

// Rule pairs a technique name with a predicate over a single access record.
type Rule struct {
	Name  string
	Match func(access.Record) bool
}

// Classifier evaluates an ordered rule list. Ordering matters: overlapping
// rules must be registered most specific first (e.g. Navigator enumeration
// claims Navigator.hardwareConcurrency before the generic hardware rule).
type Classifier struct {
	rules []Rule
}

func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a classifier with the built-in rule table.
func Default() *Classifier {
	return New(DefaultRules())
}

// Classify returns the first matching rule's technique name. The second
// return is false when no rule matches; that is not an error, the access
// is still counted by the ledger but produces no attempt. A panicking
// predicate is treated as a non-match so classification stays total.
func (c *Classifier) Classify(r access.Record) (technique string, ok bool) {
	for _, rule := range c.rules {
		if matches(rule, r) {
			return rule.Name, true
		}
	}
	return "", false
}

func matches(rule Rule, r access.Record) (hit bool) {
	defer func() {
		if recover() != nil {
			hit = false
		}
	}()
	if rule.Match == nil {
		return false
	}
	return rule.Match(r)
}

// DefaultRules is the built-in detection table.
func DefaultRules() []Rule {
	return []Rule{
		{Name: TechniqueCanvas, Match: isCanvasPixelAccess},
		{Name: TechniqueWebGL, Match: isWebGLQuery},
		{Name: TechniqueBrowser, Match: isNavigatorEnumeration},
		{Name: TechniqueAudio, Match: isAudioContextAccess},
		{Name: TechniqueHardware, Match: isHardwareEnumeration},
		{Name: TechniqueScreen, Match: isScreenGeometryAccess},
	}
}

var canvasPixelMethods = []string{"toDataURL", "toBlob", "convertToBlob", "getImageData"}

func isCanvasPixelAccess(r access.Record) bool {
	ns := namespace(r.Name)
	if ns != "HTMLCanvasElement" && ns != "OffscreenCanvas" && ns != "CanvasRenderingContext2D" {
		return false
	}
	return contains(canvasPixelMethods, member(r.Name))
}

var webglQueryMethods = []string{
	"getParameter", "getSupportedExtensions", "getExtension", "getShaderPrecisionFormat",
}

func isWebGLQuery(r access.Record) bool {
	ns := namespace(r.Name)
	if ns != "WebGLRenderingContext" && ns != "WebGL2RenderingContext" {
		return false
	}
	return contains(webglQueryMethods, member(r.Name))
}

// Fixed high-entropy navigator property list.
var navigatorProps = []string{
	"userAgent", "language", "languages", "platform",
	"hardwareConcurrency", "deviceMemory", "plugins",
}

func isNavigatorEnumeration(r access.Record) bool {
	return namespace(r.Name) == "Navigator" && contains(navigatorProps, member(r.Name))
}

var audioObjects = []string{
	"AudioContext", "OfflineAudioContext", "BaseAudioContext",
	"AnalyserNode", "OscillatorNode", "DynamicsCompressorNode",
}

func isAudioContextAccess(r access.Record) bool {
	return contains(audioObjects, namespace(r.Name))
}

var hardwareMembers = []string{
	"hardwareConcurrency", "deviceMemory", "getBattery", "connection", "getGamepads",
}

func isHardwareEnumeration(r access.Record) bool {
	return contains(hardwareMembers, member(r.Name))
}

var windowGeometryMembers = []string{
	"innerWidth", "innerHeight", "outerWidth", "outerHeight", "devicePixelRatio",
}

func isScreenGeometryAccess(r access.Record) bool {
	ns := namespace(r.Name)
	if ns == "Screen" {
		return true
	}
	return ns == "Window" && contains(windowGeometryMembers, member(r.Name))
}

// namespace returns the interface part of "Interface.member", or the whole
// name when it has no dot.
func namespace(qualified string) string {
	if i := strings.IndexByte(qualified, '.'); i >= 0 {
		return qualified[:i]
	}
	return qualified
}

// member returns the part after the last dot, or "" when there is no dot.
func member(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

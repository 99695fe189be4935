package engine

import (
	"fmt"
	"log"

	"github.com/wcf000/tracking-cookies-browser-fingerprinting/internal/access"
)

// Original is the unwrapped implementation of a capability, as supplied by
// the embedding environment. The spoof provider and delegation path call
// it directly, never through the wrapper.
type Original func(args ...any) (any, error)

// OriginalSet is the unwrapped setter for a settable property.
type OriginalSet func(value any) error

// Capability declares one target API the engine should wrap: its qualified
// name, whether it is a property or a method, and its unwrapped
// implementation(s). Configurable mirrors the host's ability to redefine
// the target: a non-configurable capability cannot be wrapped and is
// skipped during installation.
type Capability struct {
	Name         string
	Kind         access.Kind
	Settable     bool
	Configurable bool
	Original     Original
	Set          OriginalSet
}

// Installation is the set of successfully wrapped capabilities. All page
// traffic through a wrapped capability enters the engine via Call, Get,
// or Set; skipped capabilities keep their native behavior untouched.
type Installation struct {
	engine  *Engine
	wrapped map[string]Capability

	// Skipped lists capabilities that could not be wrapped
	// (non-configurable targets). Their failure never aborts the rest.
	Skipped []string
}

// Install wraps each capability, isolating per-capability failures: a
// target the host will not allow redefining is skipped and logged, and
// installation continues with the remaining ones.
func (e *Engine) Install(caps []Capability) *Installation {
	ins := &Installation{engine: e, wrapped: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		if !c.Configurable {
			log.Printf("engine: skipping non-configurable capability %s", c.Name)
			ins.Skipped = append(ins.Skipped, c.Name)
			continue
		}
		ins.wrapped[c.Name] = c
	}
	return ins
}

// Wrapped reports whether a capability was successfully installed.
func (ins *Installation) Wrapped(name string) bool {
	_, ok := ins.wrapped[name]
	return ok
}

// Original returns the unwrapped implementation for a capability, for
// engine-internal probes that must bypass the wrappers entirely.
func (ins *Installation) Original(name string) (Original, bool) {
	c, ok := ins.wrapped[name]
	if !ok || c.Original == nil {
		return nil, false
	}
	return c.Original, true
}

// Call intercepts a wrapped method invocation. When the pipeline decides
// to spoof, the original is never invoked; otherwise the call delegates
// with the caller's arguments untouched.
func (ins *Installation) Call(domain, name string, args ...any) (any, error) {
	c, ok := ins.wrapped[name]
	if !ok {
		return nil, fmt.Errorf("capability %s is not installed", name)
	}
	out := ins.engine.Intercept(domain, access.Record{
		Kind: c.Kind, Name: name, Op: access.OpCall, Args: args,
	})
	if out.Spoofed {
		return out.Value, nil
	}
	if c.Original == nil {
		return nil, nil
	}
	return c.Original(args...)
}

// Get intercepts a wrapped property read. Generic properties are observed,
// never substituted; the original getter's value is always returned.
func (ins *Installation) Get(domain, name string) (any, error) {
	c, ok := ins.wrapped[name]
	if !ok {
		return nil, fmt.Errorf("capability %s is not installed", name)
	}
	ins.engine.Intercept(domain, access.Record{
		Kind: c.Kind, Name: name, Op: access.OpGet,
	})
	if c.Original == nil {
		return nil, nil
	}
	return c.Original()
}

// Set intercepts a wrapped property write and delegates to the original
// setter when the property is settable.
func (ins *Installation) Set(domain, name string, value any) error {
	c, ok := ins.wrapped[name]
	if !ok {
		return fmt.Errorf("capability %s is not installed", name)
	}
	if !c.Settable {
		return fmt.Errorf("capability %s is not settable", name)
	}
	ins.engine.Intercept(domain, access.Record{
		Kind: c.Kind, Name: name, Op: access.OpSet, Args: []any{value},
	})
	if c.Set == nil {
		return nil
	}
	return c.Set(value)
}

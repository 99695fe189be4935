// Package reentry provides the recursion guard shared by the interception
// layer and the spoof provider. While the flag is held, wrapped capabilities
// pass straight through so the engine never observes its own probes.
package reentry

import "sync/atomic"

type Guard struct {
	flag atomic.Bool
}

// Active reports whether engine-internal code is currently executing.
func (g *Guard) Active() bool {
	return g.flag.Load()
}

// Enter raises the flag and returns a restore func that puts it back to its
// prior value. Callers must defer the restore immediately so the flag is
// released on every exit path, including panics; a leaked flag would
// permanently disable detection.
func (g *Guard) Enter() (restore func()) {
	prev := g.flag.Swap(true)
	return func() { g.flag.Store(prev) }
}

package reentry

import "testing"

func TestEnterRestore(t *testing.T) {
	var g Guard

	if g.Active() {
		t.Fatal("fresh guard should be inactive")
	}
	restore := g.Enter()
	if !g.Active() {
		t.Fatal("guard should be active after Enter")
	}
	restore()
	if g.Active() {
		t.Fatal("guard should be inactive after restore")
	}
}

func TestNestedEnterRestoresPriorValue(t *testing.T) {
	var g Guard

	outer := g.Enter()
	inner := g.Enter()
	inner()
	if !g.Active() {
		t.Fatal("inner restore must not clear the outer hold")
	}
	outer()
	if g.Active() {
		t.Fatal("outer restore should clear the flag")
	}
}

func TestRestoreRunsOnPanic(t *testing.T) {
	var g Guard

	func() {
		defer func() { _ = recover() }()
		restore := g.Enter()
		defer restore()
		panic("synthesis failure")
	}()

	if g.Active() {
		t.Fatal("flag leaked across a panic")
	}
}

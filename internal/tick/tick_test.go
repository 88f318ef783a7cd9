package tick

import "testing"

func TestIsNewerThan(t *testing.T) {
	// tick=10 write, tick=11 idle: a system with last_run=9 this_run=11
	// should observe the write exactly once.
	if !IsNewerThan(10, 9, 11) {
		t.Fatalf("expected tick 10 to be newer relative to (9,11)")
	}
	// after the system advances to last_run=11, the same write must no
	// longer be observed as newer.
	if IsNewerThan(10, 11, 12) {
		t.Fatalf("tick 10 must not be newer relative to (11,12)")
	}
}

func TestIsNewerThanWraparound(t *testing.T) {
	var thisRun Tick = 3 // wrapped past zero
	var lastRun Tick = ^Tick(0) - 1
	written := ^Tick(0)
	if !IsNewerThan(written, lastRun, thisRun) {
		t.Fatalf("expected wraparound-safe comparison to find the write newer")
	}
}

func TestRebaseDoesNotFlipObservations(t *testing.T) {
	thisRun := CheckTickThreshold + 100
	stamp := Tick(50)
	lastRun := Tick(10)

	before := IsNewerThan(stamp, lastRun, thisRun)

	cells := []*Tick{&stamp}
	Rebase(cells, thisRun)

	after := IsNewerThan(stamp, lastRun, thisRun)
	if before != after {
		t.Fatalf("rebase flipped an IsNewerThan observation: before=%v after=%v", before, after)
	}
}

func TestRebaseSliceMatchesRebase(t *testing.T) {
	thisRun := CheckTickThreshold + 100
	stamp := Tick(50)

	ptrCells := []*Tick{&stamp}
	Rebase(ptrCells, thisRun)
	ptrResult := stamp

	stamp = Tick(50)
	sliceCells := []Tick{stamp}
	RebaseSlice(sliceCells, thisRun)

	if sliceCells[0] != ptrResult {
		t.Fatalf("RebaseSlice must rewrite identically to Rebase: got %v want %v", sliceCells[0], ptrResult)
	}
}

func TestPairTouchAndMarkChanged(t *testing.T) {
	var p Pair
	p.Touch(5)
	if p.Added != 5 || p.Changed != 5 {
		t.Fatalf("Touch should set both stamps to the insertion tick")
	}
	p.MarkChanged(9)
	if p.Added != 5 {
		t.Fatalf("MarkChanged must not move Added")
	}
	if p.Changed != 9 {
		t.Fatalf("MarkChanged must move Changed")
	}
}

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xentripetal/verseengine/access"
	"github.com/xentripetal/verseengine/ecs"
	"github.com/xentripetal/verseengine/registry"
)

func newAccess(reads, writes []registry.ID) *access.FilteredAccess {
	a := access.NewAccess()
	for _, r := range reads {
		a.AddRead(r)
	}
	for _, w := range writes {
		a.AddWrite(w)
	}
	return access.NewFilteredAccess(a)
}

func TestGraphBuildTopoOrder(t *testing.T) {
	g := NewGraph()
	var called []string
	sysA := NewSystem("A", func(w *ecs.World, last, this ecs.Tick) { called = append(called, "A") }).Build()
	sysB := NewSystem("B", func(w *ecs.World, last, this ecs.Tick) { called = append(called, "B") }).Build()

	ia := g.AddSystem(sysA)
	ib := g.AddSystem(sysB)
	g.Before(Sys(ia), Sys(ib))

	sched, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	w := ecs.NewWorld()
	w.AdvanceTick()
	exec := NewSingleThreadedExecutor(nil)
	exec.Run(context.Background(), w, sched, ecs.NewCommandBuffer())

	if len(called) != 2 || called[0] != "A" || called[1] != "B" {
		t.Fatalf("expected A before B, got %v", called)
	}
}

func TestGraphBuildRejectsUnorderedConflict(t *testing.T) {
	g := NewGraph()
	sysA := NewSystem("A", func(*ecs.World, ecs.Tick, ecs.Tick) {}).
		WithAccess(newAccess(nil, []registry.ID{1})).Build()
	sysB := NewSystem("B", func(*ecs.World, ecs.Tick, ecs.Tick) {}).
		WithAccess(newAccess([]registry.ID{1}, nil)).Build()

	g.AddSystem(sysA)
	g.AddSystem(sysB)

	if _, err := g.Build(); err == nil {
		t.Fatalf("expected access-conflict diagnostic")
	}
}

func TestGraphBuildAllowsAmbiguousWith(t *testing.T) {
	g := NewGraph()
	sysA := NewSystem("A", func(*ecs.World, ecs.Tick, ecs.Tick) {}).
		WithAccess(newAccess(nil, []registry.ID{1})).Build()
	sysB := NewSystem("B", func(*ecs.World, ecs.Tick, ecs.Tick) {}).
		WithAccess(newAccess([]registry.ID{1}, nil)).Build()

	ia := g.AddSystem(sysA)
	ib := g.AddSystem(sysB)
	g.AmbiguousWith(Sys(ia), Sys(ib))

	if _, err := g.Build(); err != nil {
		t.Fatalf("ambiguous_with should suppress the conflict, got %v", err)
	}
}

func TestGraphBuildDetectsCycle(t *testing.T) {
	g := NewGraph()
	sysA := NewSystem("A", func(*ecs.World, ecs.Tick, ecs.Tick) {}).Build()
	sysB := NewSystem("B", func(*ecs.World, ecs.Tick, ecs.Tick) {}).Build()
	ia := g.AddSystem(sysA)
	ib := g.AddSystem(sysB)
	g.Before(Sys(ia), Sys(ib))
	g.Before(Sys(ib), Sys(ia))

	if _, err := g.Build(); err == nil {
		t.Fatalf("expected ordering-cycle diagnostic")
	}
}

func TestGraphRunConditionSkipsSystem(t *testing.T) {
	g := NewGraph()
	ran := false
	sys := NewSystem("A", func(*ecs.World, ecs.Tick, ecs.Tick) { ran = true }).
		RunIf(func(*ecs.World) bool { return false }).Build()
	g.AddSystem(sys)

	sched, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := ecs.NewWorld()
	NewSingleThreadedExecutor(nil).Run(context.Background(), w, sched, ecs.NewCommandBuffer())
	if ran {
		t.Fatalf("system gated by a false condition must not run")
	}
}

type spawnMarker struct{ N int }

func TestScheduleRunOrdersSpawnerBeforeReader(t *testing.T) {
	g := NewGraph()
	var spawned ecs.Entity
	spawner := NewSystem("spawner", func(w *ecs.World, last, this ecs.Tick) {
		spawned = w.SpawnEntity()
	}).Build()
	reader := NewSystem("reader", func(w *ecs.World, last, this ecs.Tick) {
		if !w.IsAlive(spawned) {
			t.Fatalf("spawner's entity should exist by the time reader runs: schedule must run spawner first")
		}
	}).Build()

	ia := g.AddSystem(spawner)
	ib := g.AddSystem(reader)
	g.Before(Sys(ia), Sys(ib))

	sched, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	w := ecs.NewWorld()
	w.AdvanceTick()
	NewSingleThreadedExecutor(nil).Run(context.Background(), w, sched, ecs.NewCommandBuffer())
}

func TestParallelExecutorRunsIndependentSystems(t *testing.T) {
	g := NewGraph()
	sysA := NewSystem("A", func(*ecs.World, ecs.Tick, ecs.Tick) {}).
		WithAccess(newAccess(nil, []registry.ID{1})).Build()
	sysB := NewSystem("B", func(*ecs.World, ecs.Tick, ecs.Tick) {}).
		WithAccess(newAccess(nil, []registry.ID{2})).Build()
	g.AddSystem(sysA)
	g.AddSystem(sysB)

	sched, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	w := ecs.NewWorld()
	NewParallelExecutor(nil, 4).Run(context.Background(), w, sched, ecs.NewCommandBuffer())
}

func TestParallelExecutorHonorsOrderingEdgeWithoutBarrier(t *testing.T) {
	g := NewGraph()
	var written atomic.Bool
	var sawWriteBeforeRead atomic.Bool

	sysA := NewSystem("A", func(*ecs.World, ecs.Tick, ecs.Tick) {
		time.Sleep(20 * time.Millisecond)
		written.Store(true)
	}).WithAccess(newAccess(nil, []registry.ID{1})).Build()
	sysB := NewSystem("B", func(*ecs.World, ecs.Tick, ecs.Tick) {
		sawWriteBeforeRead.Store(written.Load())
	}).WithAccess(newAccess([]registry.ID{1}, nil)).Build()

	ia := g.AddSystem(sysA)
	ib := g.AddSystem(sysB)
	// A is not .Deferred(), so this ordering edge earns no Barriers entry —
	// the executor must still serialize A before B using Predecessors.
	g.Before(Sys(ia), Sys(ib))

	sched, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if len(sched.Barriers) != 0 && sched.Barriers[0] {
		t.Fatalf("expected no barrier for a non-deferred Before edge")
	}

	w := ecs.NewWorld()
	NewParallelExecutor(nil, 4).Run(context.Background(), w, sched, ecs.NewCommandBuffer())

	if !sawWriteBeforeRead.Load() {
		t.Fatalf("B observed A's write had not happened yet; ordering edge was not honored")
	}
}

func TestExplicitApplyDeferredForcesBarrier(t *testing.T) {
	g := NewGraph()
	var spawned ecs.Entity
	spawner := NewSystem("spawner", func(w *ecs.World, last, this ecs.Tick) {
		spawned = w.SpawnEntity()
	}).Build() // deliberately not .Deferred()
	reader := NewSystem("reader", func(w *ecs.World, last, this ecs.Tick) {
		if !w.IsAlive(spawned) {
			t.Fatalf("explicit ApplyDeferred node should have flushed spawner's commands before reader ran")
		}
	}).Build()

	ia := g.AddSystem(spawner)
	applyIdx := g.AddApplyDeferred()
	ib := g.AddSystem(reader)
	g.Chain(Sys(ia), Sys(applyIdx), Sys(ib))

	sched, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	var barrierAtApply bool
	for i, idx := range sched.Order {
		if idx == applyIdx && i < len(sched.Barriers) {
			barrierAtApply = sched.Barriers[i]
		}
	}
	if !barrierAtApply {
		t.Fatalf("expected a barrier immediately after the explicit ApplyDeferred node")
	}

	w := ecs.NewWorld()
	w.AdvanceTick()
	NewSingleThreadedExecutor(nil).Run(context.Background(), w, sched, ecs.NewCommandBuffer())
}

func TestScheduleApplyFinalDeferredCanBeDisabled(t *testing.T) {
	w := ecs.NewWorld()
	w.AdvanceTick()
	e := w.SpawnEntity()

	cb := ecs.NewCommandBuffer()
	g := NewGraph()
	destroyer := NewSystem("destroyer", func(*ecs.World, ecs.Tick, ecs.Tick) {
		cb.DestroyEntity(e)
	}).Deferred().Build()
	g.AddSystem(destroyer)

	sched, err := g.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	s := NewSchedule(sched, NewSingleThreadedExecutor(nil))
	s.Commands = cb
	s.ApplyFinalDeferred = false
	s.Run(context.Background(), w)

	if !w.IsAlive(e) {
		t.Fatalf("ApplyFinalDeferred=false must leave trailing deferred commands unapplied")
	}
	if s.Commands.IsEmpty() {
		t.Fatalf("expected the destroy command to still be queued in Commands")
	}

	s.Commands.Apply(w)
	if w.IsAlive(e) {
		t.Fatalf("applying the retained command buffer by hand should destroy the entity")
	}
}

package ecs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xentripetal/verseengine/registry"
)

type position struct{ X, Y float64 }
type velocity struct{ X, Y float64 }
type marker struct{}

func TestSpawnAndGetComponent(t *testing.T) {
	w := NewWorld()
	e := w.SpawnEntity()
	SetComponent(w, e, position{X: 1, Y: 2})

	p, ok := GetComponent[position](w, e)
	if !ok {
		t.Fatalf("expected position component")
	}
	if p.X != 1 || p.Y != 2 {
		t.Fatalf("unexpected value %+v", *p)
	}
}

func TestArchetypeMonomorphism(t *testing.T) {
	w := NewWorld()
	a := w.SpawnEntity()
	SetComponent(w, a, position{})
	SetComponent(w, a, velocity{})

	b := w.SpawnEntity()
	SetComponent(w, b, velocity{})
	SetComponent(w, b, position{})

	recA := w.records[a.Index()]
	recB := w.records[b.Index()]
	if recA.archetype != recB.archetype {
		t.Fatalf("entities with the same component set regardless of insertion order must share one archetype instance")
	}
}

func TestDestroyEntitySwapRemove(t *testing.T) {
	w := NewWorld()
	a := w.SpawnEntity()
	SetComponent(w, a, position{X: 1})
	b := w.SpawnEntity()
	SetComponent(w, b, position{X: 2})

	w.DestroyEntity(a)
	if w.IsAlive(a) {
		t.Fatalf("a should be dead")
	}
	if !w.IsAlive(b) {
		t.Fatalf("b should still be alive after a's swap-remove")
	}
	p, ok := GetComponent[position](w, b)
	if !ok || p.X != 2 {
		t.Fatalf("b's component should survive the swap-remove intact, got %+v ok=%v", p, ok)
	}
}

func TestStaleEntityHandleDetected(t *testing.T) {
	w := NewWorld()
	a := w.SpawnEntity()
	w.DestroyEntity(a)
	recycled := w.SpawnEntity()

	if w.IsAlive(a) {
		t.Fatalf("destroyed entity must not report alive even after its slot is recycled")
	}
	if !w.IsAlive(recycled) {
		t.Fatalf("recycled entity should be alive")
	}
}

func TestUnsetComponentMovesArchetype(t *testing.T) {
	w := NewWorld()
	e := w.SpawnEntity()
	SetComponent(w, e, position{X: 5})
	SetComponent(w, e, velocity{X: 7})

	UnsetComponent[velocity](w, e)
	if _, ok := GetComponent[velocity](w, e); ok {
		t.Fatalf("velocity should be gone")
	}
	p, ok := GetComponent[position](w, e)
	if !ok || p.X != 5 {
		t.Fatalf("position must survive the move, got %+v ok=%v", p, ok)
	}
}

func TestChunkBoundaryAllocatesNewChunkWithoutInvalidatingFirst(t *testing.T) {
	w := NewWorld()
	var first Entity
	for i := 0; i < ChunkCapacity+1; i++ {
		e := w.SpawnEntity()
		SetComponent(w, e, position{X: float64(i)})
		if i == 0 {
			first = e
		}
	}
	p, ok := GetComponent[position](w, first)
	if !ok || p.X != 0 {
		t.Fatalf("first entity's component must remain valid once a second chunk is allocated, got %+v ok=%v", p, ok)
	}
}

func TestQueryForEachVisitsMatchingEntities(t *testing.T) {
	w := NewWorld()
	a := w.SpawnEntity()
	SetComponent(w, a, position{X: 1})
	SetComponent(w, a, velocity{X: 1})

	b := w.SpawnEntity()
	SetComponent(w, b, position{X: 2})

	movingID := registry.ComponentID[velocity](w.Registry())
	q := NewQuery[position](w, true, With(movingID, false))

	seen := 0
	q.ForEach(0, w.CurrentTick(), func(r Row[position]) {
		seen++
		if r.Entity != a {
			t.Fatalf("only entity a has both components")
		}
	})
	if seen != 1 {
		t.Fatalf("expected exactly 1 match, got %d", seen)
	}
}

func TestQueryWithoutExcludes(t *testing.T) {
	w := NewWorld()
	a := w.SpawnEntity()
	SetComponent(w, a, position{})
	SetComponent(w, a, marker{})

	b := w.SpawnEntity()
	SetComponent(w, b, position{})

	markerID := registry.ComponentID[marker](w.Registry())
	q := NewQuery[position](w, false, Without(markerID))

	seen := 0
	q.ForEach(0, w.CurrentTick(), func(r Row[position]) {
		seen++
		if r.Entity != b {
			t.Fatalf("entity with marker must be excluded")
		}
	})
	if seen != 1 {
		t.Fatalf("expected exactly 1 match, got %d", seen)
	}
}

func TestQueryChangedDetection(t *testing.T) {
	w := NewWorld()
	e := w.SpawnEntity()
	lastRunBeforeWrite := w.CurrentTick()
	w.AdvanceTick()
	SetComponent(w, e, position{X: 1})
	thisRun := w.CurrentTick()

	q := NewQuery[position](w, true)
	var changed bool
	q.ForEach(lastRunBeforeWrite, thisRun, func(r Row[position]) {
		if r.Changed() {
			changed = true
		}
	})
	if !changed {
		t.Fatalf("expected write to be observed as changed between lastRun and thisRun")
	}

	w.AdvanceTick()
	nextThisRun := w.CurrentTick()
	changed = false
	q.ForEach(thisRun, nextThisRun, func(r Row[position]) {
		if r.Changed() {
			changed = true
		}
	})
	if changed {
		t.Fatalf("a system whose window starts after the write must not see it as changed")
	}
}

func TestQuery2VisitsBothComponentsInLockStep(t *testing.T) {
	w := NewWorld()
	a := w.SpawnEntity()
	SetComponent(w, a, position{X: 1, Y: 2})
	SetComponent(w, a, velocity{X: 3, Y: 4})

	b := w.SpawnEntity()
	SetComponent(w, b, position{X: 9})

	q := NewQuery2[position, velocity](w, true, false)
	seen := 0
	q.ForEach(0, w.CurrentTick(), func(r Row2[position, velocity]) {
		seen++
		if r.Entity != a {
			t.Fatalf("only entity a has both components")
		}
		r.A.X += r.B.X
		r.MarkChangedA()
	})
	if seen != 1 {
		t.Fatalf("expected exactly 1 match, got %d", seen)
	}

	p, ok := GetComponent[position](w, a)
	if !ok || p.X != 4 {
		t.Fatalf("expected the write through Row2.A to land on the real component, got %+v ok=%v", p, ok)
	}
}

func TestQuery2Get(t *testing.T) {
	w := NewWorld()
	a := w.SpawnEntity()
	SetComponent(w, a, position{X: 1})
	SetComponent(w, a, velocity{X: 2})

	q := NewQuery2[position, velocity](w, false, false)
	row, ok := q.Get(a, 0, w.CurrentTick())
	if !ok {
		t.Fatalf("expected entity a to match Query2")
	}
	if row.A.X != 1 || row.B.X != 2 {
		t.Fatalf("unexpected row %+v", row)
	}

	b := w.SpawnEntity()
	SetComponent(w, b, position{X: 9})
	if _, ok := q.Get(b, 0, w.CurrentTick()); ok {
		t.Fatalf("entity missing velocity must not match Query2")
	}
}

func TestCommandBufferDeferredDestroy(t *testing.T) {
	w := NewWorld()
	e := w.SpawnEntity()
	cb := NewCommandBuffer()
	cb.DestroyEntity(e)

	if !w.IsAlive(e) {
		t.Fatalf("destroy must be deferred, not immediate")
	}
	cb.Apply(w)
	if w.IsAlive(e) {
		t.Fatalf("entity should be destroyed after Apply")
	}
}

func TestCommandBufferSetComponent(t *testing.T) {
	w := NewWorld()
	e := w.SpawnEntity()
	cb := NewCommandBuffer()
	CommandSetComponent(cb, e, position{X: 9})
	cb.Apply(w)

	p, ok := GetComponent[position](w, e)
	if !ok || p.X != 9 {
		t.Fatalf("expected deferred SetComponent to apply, got %+v ok=%v", p, ok)
	}
}

func TestResourceInsertGetMut(t *testing.T) {
	w := NewWorld()
	InsertResource(w, 42)
	r := GetRes[int](w)
	if r.Get() != 42 {
		t.Fatalf("expected 42, got %d", r.Get())
	}

	rm := GetResMut[int](w)
	rm.Set(7)
	if GetRes[int](w).Get() != 7 {
		t.Fatalf("expected 7 after mutation")
	}
}

func TestResourceIdempotentInsert(t *testing.T) {
	w := NewWorld()
	InsertResource(w, "a")
	InsertResource(w, "a")
	if w.resources.boxes == nil {
		t.Fatalf("expected a box to exist")
	}
	count := 0
	for _, b := range w.resources.boxes {
		if b != nil {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("inserting the same resource twice must leave exactly one copy, got %d", count)
	}
}

func TestOptionalResourceAbsent(t *testing.T) {
	w := NewWorld()
	if _, ok := OptionalRes[float32](w); ok {
		t.Fatalf("expected absent resource to report false")
	}
}

func TestStatsTracksEntitiesArchetypesAndChunkMoves(t *testing.T) {
	w := NewWorld()
	e1 := w.SpawnEntity()
	e2 := w.SpawnEntity()

	if got := w.Stats().Entities; got != 2 {
		t.Fatalf("expected 2 live entities, got %d", got)
	}

	SetComponent(w, e1, position{X: 1})
	if got := w.Stats().Archetypes; got < 2 {
		t.Fatalf("expected at least 2 archetypes after adding a component, got %d", got)
	}

	w.DestroyEntity(e2)
	if got := w.Stats().Entities; got != 1 {
		t.Fatalf("expected 1 live entity after destroy, got %d", got)
	}
}

func TestNewWorldAcceptsMetricsOption(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := NewWorld(WithMetrics(reg))
	w.SpawnEntity()
	w.ReportMetrics()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "world_entities" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected world_entities to be registered, got %v", families)
	}
}

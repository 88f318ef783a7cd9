package ecs

import (
	"github.com/xentripetal/verseengine/internal/tick"
	"github.com/xentripetal/verseengine/registry"
)

// resourceBox is one boxed resource value plus the ticks change detection
// needs: added is stamped on first insertion, changed on every declared
// write.
type resourceBox struct {
	value any
	ticks tick.Pair
}

// resourceStore holds at most one value per registered resource ID. Keyed
// by dense ID rather than a map[reflect.Type] for the same reason
// components are: IDs are assigned once by registry.Registry and reused as
// bitset indices by the access tracker.
type resourceStore struct {
	boxes []*resourceBox // indexed by registry.ID; nil means absent
}

func newResourceStore() *resourceStore {
	return &resourceStore{}
}

func (s *resourceStore) ensure(id registry.ID) {
	for int(id) >= len(s.boxes) {
		s.boxes = append(s.boxes, nil)
	}
}

func (s *resourceStore) rebase(thisRun Tick) {
	for _, b := range s.boxes {
		if b == nil {
			continue
		}
		pairs := []*tick.Pair{&b.ticks}
		tick.RebasePairs(pairs, thisRun)
	}
}

// InsertResource inserts or replaces T's value, stamping both added and
// changed ticks to the world's current tick. Inserting the same resource
// twice with the same value still leaves exactly one stored copy, since the
// box is replaced in place rather than appended.
func InsertResource[T any](w *World, value T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	insertResourceLocked(w, value)
}

// insertResourceLocked is InsertResource's body without its own locking, for
// callers (CommandBuffer.Apply) that already hold w.mu.
func insertResourceLocked[T any](w *World, value T) {
	id := registry.ResourceID[T](w.registry)
	w.resources.ensure(id)
	w.resources.boxes[id] = &resourceBox{value: value, ticks: tick.Pair{Added: w.currentTick, Changed: w.currentTick}}
}

// RemoveResource deletes T's stored value, if any, and returns it.
func RemoveResource[T any](w *World) (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var zero T
	id, ok := registry.LookupResourceID[T](w.registry)
	if !ok || int(id) >= len(w.resources.boxes) || w.resources.boxes[id] == nil {
		return zero, false
	}
	v := w.resources.boxes[id].value.(T)
	w.resources.boxes[id] = nil
	return v, true
}

// Res is a read-only handle to a resource, valid for the duration of the
// system call that obtained it.
type Res[T any] struct {
	box *resourceBox
}

// ResMut is a mutable handle; any write through Set updates the resource's
// changed-tick to the world's current tick.
type ResMut[T any] struct {
	w   *World
	box *resourceBox
}

// GetRes returns a read-only handle to T, panicking if it was never
// inserted. Use OptionalRes for a resource that may be absent.
func GetRes[T any](w *World) Res[T] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	box := mustBox[T](w)
	return Res[T]{box: box}
}

// Get returns the resource's current value.
func (r Res[T]) Get() T { return r.box.value.(T) }

// GetResMut returns a mutable handle to T, panicking if it was never
// inserted.
func GetResMut[T any](w *World) ResMut[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	box := mustBox[T](w)
	return ResMut[T]{w: w, box: box}
}

// Get returns the resource's current value.
func (r ResMut[T]) Get() T { return r.box.value.(T) }

// Set replaces the resource's value and stamps its changed-tick to the
// world's current tick.
func (r ResMut[T]) Set(v T) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.box.value = v
	r.box.ticks.MarkChanged(r.w.currentTick)
}

// SetBypassChangeDetection replaces the resource's value without touching
// its changed-tick. Intended only for internal plumbing (e.g. restoring a
// snapshot) that must not appear as an observable change to Changed<T>
// queries.
func (r ResMut[T]) SetBypassChangeDetection(v T) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	r.box.value = v
}

func mustBox[T any](w *World) *resourceBox {
	id, ok := registry.LookupResourceID[T](w.registry)
	if !ok || int(id) >= len(w.resources.boxes) || w.resources.boxes[id] == nil {
		panic("ecs: resource not present in world")
	}
	return w.resources.boxes[id]
}

// OptionalRes returns a read-only handle to T and true, or the zero handle
// and false if T was never inserted.
func OptionalRes[T any](w *World) (Res[T], bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	box, ok := optionalBox[T](w)
	if !ok {
		return Res[T]{}, false
	}
	return Res[T]{box: box}, true
}

// OptionalResMut returns a mutable handle to T and true, or the zero handle
// and false if T was never inserted.
func OptionalResMut[T any](w *World) (ResMut[T], bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	box, ok := optionalBox[T](w)
	if !ok {
		return ResMut[T]{}, false
	}
	return ResMut[T]{w: w, box: box}, true
}

func optionalBox[T any](w *World) (*resourceBox, bool) {
	id, ok := registry.LookupResourceID[T](w.registry)
	if !ok || int(id) >= len(w.resources.boxes) || w.resources.boxes[id] == nil {
		return nil, false
	}
	return w.resources.boxes[id], true
}

package ecs

import "sync"

// command is one deferred structural mutation, closed over its arguments
// and applied against the world once Apply is called.
type command func(w *World)

// CommandBuffer is a FIFO queue of deferred structural mutations: the
// pattern a system uses to spawn, destroy or reshape entities without
// taking the world's exclusive lock itself mid-iteration. A CommandBuffer
// is drained exactly once per flush barrier the executor inserts between
// systems that need one, rather than auto-draining on every release.
type CommandBuffer struct {
	mu  sync.Mutex
	ops []command
}

// NewCommandBuffer returns an empty buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

func (cb *CommandBuffer) enqueue(op command) {
	cb.mu.Lock()
	cb.ops = append(cb.ops, op)
	cb.mu.Unlock()
}

// DestroyEntity defers e's destruction.
func (cb *CommandBuffer) DestroyEntity(e Entity) {
	cb.enqueue(func(w *World) { w.destroyLocked(e) })
}

// CommandSetComponent defers assigning value as e's T component. A
// free function, not a CommandBuffer method, since Go methods cannot carry
// their own type parameters.
func CommandSetComponent[T any](cb *CommandBuffer, e Entity, value T) {
	cb.enqueue(func(w *World) {
		info := componentInfoFor[T](w.components)
		r := &w.records[e.Index()]
		if !r.alive {
			return
		}
		if !r.archetype.Has(info.id) {
			w.moveToLocked(e, w.archetypes.withAdded(r.archetype, info.id, w.components))
			r = &w.records[e.Index()]
		}
		ptr := r.chunk.writePointer(info.id, r.row, w.currentTick)
		*(*T)(ptr) = value
	})
}

// CommandUnsetComponent defers removing T from e.
func CommandUnsetComponent[T any](cb *CommandBuffer, e Entity) {
	cb.enqueue(func(w *World) {
		info := componentInfoFor[T](w.components)
		r := &w.records[e.Index()]
		if !r.alive || !r.archetype.Has(info.id) {
			return
		}
		w.moveToLocked(e, w.archetypes.withRemoved(r.archetype, info.id, w.components))
	})
}

// CommandSetChanged defers stamping T's changed-tick on e to the world's
// current tick at apply time, without altering the stored value. Used when
// a system mutates a component's contents through a raw pointer obtained
// outside the query engine's own change tracking.
func CommandSetChanged[T any](cb *CommandBuffer, e Entity) {
	cb.enqueue(func(w *World) {
		info := componentInfoFor[T](w.components)
		r := &w.records[e.Index()]
		if !r.alive || !r.archetype.Has(info.id) {
			return
		}
		r.chunk.columns[info.id].changed[r.row] = w.currentTick
	})
}

// CommandInsertResource defers InsertResource(w, value).
func CommandInsertResource[T any](cb *CommandBuffer, value T) {
	cb.enqueue(func(w *World) { insertResourceLocked(w, value) })
}

// Apply drains every queued command, in FIFO order, under one acquisition
// of the world's exclusive lock. Commands enqueued by a command that runs
// during Apply (there are none in this engine, but a future command type
// could add one) would not be seen by this pass — Apply takes a stable
// snapshot of the queue up front.
func (cb *CommandBuffer) Apply(w *World) {
	cb.mu.Lock()
	ops := cb.ops
	cb.ops = nil
	cb.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, op := range ops {
		op(w)
	}
}

// IsEmpty reports whether the buffer currently has no queued commands.
func (cb *CommandBuffer) IsEmpty() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.ops) == 0
}

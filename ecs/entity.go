// Package ecs implements the archetype-based entity/component storage at
// the core of verseengine: entities, chunked columnar archetypes, queries,
// resources and the deferred command buffer used to apply structural
// changes from inside a running system.
//
// Entity identity uses a free-list allocator with a generation counter per
// slot, and archetypes are interned and reshaped through an edge graph so
// add/remove-component moves stay O(1) once an edge is cached.
//
// © 2025 verseengine authors. MIT License.
package ecs

// Entity is an opaque handle: the low 32 bits are a dense index into the
// world's record table, the next 16 bits are a generation counter bumped on
// every reuse of that index (so a stale Entity value can never alias a
// different entity occupying the same slot), and the top 16 bits are
// reserved flag bits currently unused by the engine itself.
type Entity uint64

const (
	entityIndexBits = 32
	entityGenBits   = 16

	entityIndexMask = (uint64(1) << entityIndexBits) - 1
	entityGenMask   = (uint64(1) << entityGenBits) - 1
)

func newEntity(index uint32, generation uint16) Entity {
	return Entity(uint64(index) | (uint64(generation) << entityIndexBits))
}

// Index returns the dense record-table index encoded in e.
func (e Entity) Index() uint32 { return uint32(uint64(e) & entityIndexMask) }

// Generation returns the reuse counter encoded in e.
func (e Entity) Generation() uint16 {
	return uint16((uint64(e) >> entityIndexBits) & entityGenMask)
}

// Null is the zero Entity, never returned by SpawnEntity and always invalid.
const Null Entity = 0

// entityAllocator hands out entity indices, recycling freed ones and
// bumping their generation so old handles are detectably stale.
type entityAllocator struct {
	generations []uint16
	free        []uint32
}

func newEntityAllocator() *entityAllocator {
	return &entityAllocator{}
}

// alloc returns a fresh or recycled Entity.
func (a *entityAllocator) alloc() Entity {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		return newEntity(idx, a.generations[idx])
	}
	if len(a.generations) == 0 {
		// Index 0 is reserved so that no allocation ever returns Null.
		a.generations = append(a.generations, 0)
	}
	idx := uint32(len(a.generations))
	a.generations = append(a.generations, 0)
	return newEntity(idx, 0)
}

// release recycles e's index, bumping its generation so previously issued
// copies of e are detectably stale.
func (a *entityAllocator) release(e Entity) {
	idx := e.Index()
	a.generations[idx]++
	a.free = append(a.free, idx)
}

// isCurrent reports whether e's generation matches the allocator's current
// generation for its index — i.e. whether e still refers to a live entity
// rather than one that has since been destroyed and its slot reused.
func (a *entityAllocator) isCurrent(e Entity) bool {
	idx := e.Index()
	if int(idx) >= len(a.generations) {
		return false
	}
	return a.generations[idx] == e.Generation()
}

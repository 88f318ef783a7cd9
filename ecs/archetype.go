package ecs

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/xentripetal/verseengine/internal/tick"
	"github.com/xentripetal/verseengine/registry"
)

// archetypeHash identifies a sorted set of component IDs order-independently.
// It's an xxhash digest over the sorted ID list rather than a fixed-width
// bitmask, so the number of distinct component types isn't bounded by a
// machine word.
type archetypeHash uint64

func hashComponentIDs(sorted []registry.ID) archetypeHash {
	var buf [4]byte
	h := xxhash.New()
	for _, id := range sorted {
		binary.LittleEndian.PutUint32(buf[:], uint32(id))
		h.Write(buf[:])
	}
	return archetypeHash(h.Sum64())
}

func sortedComponentIDs(ids []registry.ID) []registry.ID {
	out := append([]registry.ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// archetypeEdge caches the destination archetype reached by adding or
// removing one component ID from the edge's owning archetype. Walking these
// edges (instead of re-hashing a component list) is how the world moves an
// entity between archetypes on structural mutation. Queries do not walk the
// edges: they test every interned archetype in turn.
type archetypeEdge struct {
	add    map[registry.ID]*Archetype
	remove map[registry.ID]*Archetype
}

// Archetype is the storage unit for every entity sharing an identical,
// sorted set of component IDs. Two archetypes with the same component set
// are always the same *Archetype instance — interned by hash in
// archetypeTable.
type Archetype struct {
	id         int // dense index into archetypeTable.byIndex, stable for the World's lifetime
	hash       archetypeHash
	generation uint64 // bumped each time a new archetype is created, used to invalidate query caches
	components []registry.ID
	chunks     []*Chunk
	edge       archetypeEdge
}

// Has reports whether id is part of this archetype's component set.
func (a *Archetype) Has(id registry.ID) bool {
	for _, c := range a.components {
		if c == id {
			return true
		}
	}
	return false
}

// archetypeTable interns archetypes by their component-ID hash so two
// entities with the same component set always share one Archetype. Each
// hash bucket holds every archetype that has ever hashed to it; a lookup
// walks the bucket and compares the sorted component-ID slice directly; so a
// 64-bit xxhash collision between two distinct component sets never gets
// silently treated as the same archetype.
type archetypeTable struct {
	byHash  map[archetypeHash][]*Archetype
	byIndex []*Archetype
	nextGen uint64
}

func newArchetypeTable() *archetypeTable {
	t := &archetypeTable{byHash: make(map[archetypeHash][]*Archetype)}
	// Archetype 0 is always the empty archetype (no components), the root
	// of the add/remove edge graph.
	t.intern(nil, nil)
	return t
}

// root returns the empty archetype, shared by every entity with no
// components.
func (t *archetypeTable) root() *Archetype { return t.byIndex[0] }

// sameComponents reports whether two sorted component-ID slices are
// identical, element for element.
func sameComponents(a, b []registry.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// getOrCreate returns the archetype for the given sorted component set,
// interning a new one (and bumping the table generation) if it doesn't
// exist yet. A hash match is only a candidate: the bucket is scanned and
// each candidate's component set compared directly before being accepted.
func (t *archetypeTable) getOrCreate(sorted []registry.ID, cr *componentRegistry) *Archetype {
	h := hashComponentIDs(sorted)
	for _, a := range t.byHash[h] {
		if sameComponents(a.components, sorted) {
			return a
		}
	}
	return t.intern(sorted, cr)
}

func (t *archetypeTable) intern(sorted []registry.ID, cr *componentRegistry) *Archetype {
	h := hashComponentIDs(sorted)
	t.nextGen++
	a := &Archetype{
		id:         len(t.byIndex),
		hash:       h,
		generation: t.nextGen,
		components: sorted,
		edge:       archetypeEdge{add: make(map[registry.ID]*Archetype), remove: make(map[registry.ID]*Archetype)},
	}
	t.byHash[h] = append(t.byHash[h], a)
	t.byIndex = append(t.byIndex, a)
	return a
}

// withAdded returns the archetype reached by adding id to src's component
// set, walking (or populating) src's add edge.
func (t *archetypeTable) withAdded(src *Archetype, id registry.ID, cr *componentRegistry) *Archetype {
	if dst, ok := src.edge.add[id]; ok {
		return dst
	}
	if src.Has(id) {
		src.edge.add[id] = src
		return src
	}
	merged := append(append([]registry.ID(nil), src.components...), id)
	sorted := sortedComponentIDs(merged)
	dst := t.getOrCreate(sorted, cr)
	src.edge.add[id] = dst
	dst.edge.remove[id] = src
	return dst
}

// withRemoved returns the archetype reached by removing id from src's
// component set, walking (or populating) src's remove edge.
func (t *archetypeTable) withRemoved(src *Archetype, id registry.ID, cr *componentRegistry) *Archetype {
	if dst, ok := src.edge.remove[id]; ok {
		return dst
	}
	if !src.Has(id) {
		src.edge.remove[id] = src
		return src
	}
	remaining := make([]registry.ID, 0, len(src.components)-1)
	for _, c := range src.components {
		if c != id {
			remaining = append(remaining, c)
		}
	}
	dst := t.getOrCreate(remaining, cr)
	src.edge.remove[id] = dst
	dst.edge.add[id] = src
	return dst
}

// allocRow finds (or creates) a non-full chunk on a and returns it together
// with the row the new entity will occupy.
func (a *Archetype) allocRow(e Entity, now tick.Tick, cr *componentRegistry) (*Chunk, int) {
	for _, c := range a.chunks {
		if !c.Full() {
			return c, c.push(e, now)
		}
	}
	c := newChunk(a.components, cr)
	a.chunks = append(a.chunks, c)
	return c, c.push(e, now)
}

package ecs

import (
	"sort"

	"github.com/xentripetal/verseengine/internal/tick"
	"github.com/xentripetal/verseengine/registry"
)

// termKind distinguishes the three term shapes a query can be built from.
type termKind uint8

const (
	termWith termKind = iota
	termWithout
	termOptional
)

// Term is one clause of a query's filter: require, forbid, or optionally
// read/write a component ID. Terms are sorted canonically (by kind, then
// ID). Each Query keeps its own match cache: two queries built from the same
// terms do not share one.
type Term struct {
	ID    registry.ID
	Kind  termKind
	Write bool
}

// With requires id to be present; write selects whether the query needs
// mutable access to it.
func With(id registry.ID, write bool) Term { return Term{ID: id, Kind: termWith, Write: write} }

// Without requires id to be absent from the matched archetype.
func Without(id registry.ID) Term { return Term{ID: id, Kind: termWithout} }

// Optional matches whether or not id is present, without affecting
// archetype matching.
func Optional(id registry.ID, write bool) Term { return Term{ID: id, Kind: termOptional, Write: write} }

func canonicalTerms(terms []Term) []Term {
	out := append([]Term(nil), terms...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// matchCache holds a query's matched archetypes, memoized against the
// archetype table's generation counter so matching is rerun only when a new
// archetype has actually been created since the last check.
type matchCache struct {
	lastGen uint64
	matched []*Archetype
}

// Query[T] iterates every entity that has a T component (required, with the
// given write access) and satisfies every additional filter Term. Built
// once and reused across ticks; each call to ForEach/ForEachAdded/
// ForEachChanged revalidates the match cache first.
type Query[T any] struct {
	w       *World
	id      registry.ID
	write   bool
	filters []Term
	cache   matchCache
}

// NewQuery builds a query over T plus any additional filter terms, sorting
// the terms canonically.
func NewQuery[T any](w *World, write bool, filters ...Term) *Query[T] {
	info := componentInfoFor[T](w.components)
	return &Query[T]{
		w:       w,
		id:      info.id,
		write:   write,
		filters: canonicalTerms(filters),
	}
}

func (q *Query[T]) refresh() {
	if q.cache.lastGen == q.w.archetypes.nextGen {
		return
	}
	q.cache.matched = q.cache.matched[:0]
	for _, a := range q.w.archetypes.byIndex {
		if q.archetypeMatches(a) {
			q.cache.matched = append(q.cache.matched, a)
		}
	}
	q.cache.lastGen = q.w.archetypes.nextGen
}

// archetypeMatches applies each term's pruning rule: Without stops the
// match if present; With requires presence; Optional never excludes.
func (q *Query[T]) archetypeMatches(a *Archetype) bool {
	if !a.Has(q.id) {
		return false
	}
	for _, t := range q.filters {
		switch t.Kind {
		case termWith:
			if !a.Has(t.ID) {
				return false
			}
		case termWithout:
			if a.Has(t.ID) {
				return false
			}
		case termOptional:
			// matches regardless of presence
		}
	}
	return true
}

// Row is the per-entity view a query's iteration callback receives: the
// entity, a pointer to its main component, and tick-aware helpers for
// Added/Changed/MarkChanged semantics scoped to the system's
// (last_run, this_run) pair.
type Row[T any] struct {
	Entity  Entity
	Value   *T
	chunk   *Chunk
	row     int
	compID  registry.ID
	lastRun Tick
	thisRun Tick
}

// Added reports whether the main component was added after lastRun and no
// later than thisRun.
func (r Row[T]) Added() bool {
	col := r.chunk.columns[r.compID]
	return tick.IsNewerThan(col.added[r.row], r.lastRun, r.thisRun)
}

// Changed reports whether the main component was changed after lastRun and
// no later than thisRun.
func (r Row[T]) Changed() bool {
	col := r.chunk.columns[r.compID]
	return tick.IsNewerThan(col.changed[r.row], r.lastRun, r.thisRun)
}

// MarkChanged stamps thisRun into the main component's changed-tick for
// this row, as if the system had just written it.
func (r Row[T]) MarkChanged() {
	r.chunk.columns[r.compID].changed[r.row] = r.thisRun
}

// ForEach visits every matching entity, in archetype then chunk then row
// order. fn must not spawn or destroy entities or otherwise trigger a
// structural mutation; use a CommandBuffer for that instead.
func (q *Query[T]) ForEach(lastRun, thisRun Tick, fn func(Row[T])) {
	q.w.mu.RLock()
	defer q.w.mu.RUnlock()
	q.refresh()
	for _, a := range q.cache.matched {
		for _, c := range a.chunks {
			col := c.columns[q.id]
			for row := 0; row < c.len; row++ {
				fn(Row[T]{
					Entity:  c.entities[row],
					Value:   (*T)(col.ptrAt(row)),
					chunk:   c,
					row:     row,
					compID:  q.id,
					lastRun: lastRun,
					thisRun: thisRun,
				})
			}
		}
	}
}

// ForEachAdded visits only rows where Added() holds.
func (q *Query[T]) ForEachAdded(lastRun, thisRun Tick, fn func(Row[T])) {
	q.ForEach(lastRun, thisRun, func(r Row[T]) {
		if r.Added() {
			fn(r)
		}
	})
}

// ForEachChanged visits only rows where Changed() holds.
func (q *Query[T]) ForEachChanged(lastRun, thisRun Tick, fn func(Row[T])) {
	q.ForEach(lastRun, thisRun, func(r Row[T]) {
		if r.Changed() {
			fn(r)
		}
	})
}

// Single returns the query's lone matching row, for queries expected to
// match exactly one entity (e.g. a singleton marker component). Panics if
// zero or more than one entity matches.
func (q *Query[T]) Single(lastRun, thisRun Tick) Row[T] {
	var found []Row[T]
	q.ForEach(lastRun, thisRun, func(r Row[T]) { found = append(found, r) })
	if len(found) != 1 {
		panic("ecs: Single() requires exactly one matching entity")
	}
	return found[0]
}

// Get returns the row for a specific entity, or false if e doesn't match
// the query (not present, archetype filtered out, or not alive).
func (q *Query[T]) Get(e Entity, lastRun, thisRun Tick) (Row[T], bool) {
	q.w.mu.RLock()
	defer q.w.mu.RUnlock()
	if !q.w.entities.isCurrent(e) {
		return Row[T]{}, false
	}
	rec := q.w.records[e.Index()]
	if !rec.alive || !q.archetypeMatches(rec.archetype) {
		return Row[T]{}, false
	}
	col := rec.chunk.columns[q.id]
	return Row[T]{
		Entity:  e,
		Value:   (*T)(col.ptrAt(rec.row)),
		chunk:   rec.chunk,
		row:     rec.row,
		compID:  q.id,
		lastRun: lastRun,
		thisRun: thisRun,
	}, true
}

// Query2[A, B] iterates every entity that has both an A and a B component
// (plus any additional filters), giving a row simultaneous typed access to
// both in lock-step — the case a single-component Query can't express
// without a second query and manual entity correlation, e.g. reading
// Position while writing Velocity on the same entity in one pass.
type Query2[A, B any] struct {
	w              *World
	idA, idB       registry.ID
	writeA, writeB bool
	filters        []Term
	cache          matchCache
}

// NewQuery2 builds a query over A and B plus any additional filter terms.
func NewQuery2[A, B any](w *World, writeA, writeB bool, filters ...Term) *Query2[A, B] {
	infoA := componentInfoFor[A](w.components)
	infoB := componentInfoFor[B](w.components)
	return &Query2[A, B]{
		w:       w,
		idA:     infoA.id,
		idB:     infoB.id,
		writeA:  writeA,
		writeB:  writeB,
		filters: canonicalTerms(filters),
	}
}

func (q *Query2[A, B]) refresh() {
	if q.cache.lastGen == q.w.archetypes.nextGen {
		return
	}
	q.cache.matched = q.cache.matched[:0]
	for _, a := range q.w.archetypes.byIndex {
		if q.archetypeMatches(a) {
			q.cache.matched = append(q.cache.matched, a)
		}
	}
	q.cache.lastGen = q.w.archetypes.nextGen
}

func (q *Query2[A, B]) archetypeMatches(a *Archetype) bool {
	if !a.Has(q.idA) || !a.Has(q.idB) {
		return false
	}
	for _, t := range q.filters {
		switch t.Kind {
		case termWith:
			if !a.Has(t.ID) {
				return false
			}
		case termWithout:
			if a.Has(t.ID) {
				return false
			}
		case termOptional:
			// matches regardless of presence
		}
	}
	return true
}

// Row2 is the per-entity view a Query2's iteration callback receives: the
// entity plus simultaneous pointers to both typed components, each with its
// own Added/Changed/MarkChanged helpers.
type Row2[A, B any] struct {
	Entity           Entity
	A                *A
	B                *B
	chunk            *Chunk
	row              int
	idA, idB         registry.ID
	lastRun, thisRun Tick
}

// AddedA reports whether A was added after lastRun and no later than thisRun.
func (r Row2[A, B]) AddedA() bool {
	return tick.IsNewerThan(r.chunk.columns[r.idA].added[r.row], r.lastRun, r.thisRun)
}

// ChangedA reports whether A was changed after lastRun and no later than thisRun.
func (r Row2[A, B]) ChangedA() bool {
	return tick.IsNewerThan(r.chunk.columns[r.idA].changed[r.row], r.lastRun, r.thisRun)
}

// MarkChangedA stamps thisRun into A's changed-tick for this row.
func (r Row2[A, B]) MarkChangedA() { r.chunk.columns[r.idA].changed[r.row] = r.thisRun }

// AddedB reports whether B was added after lastRun and no later than thisRun.
func (r Row2[A, B]) AddedB() bool {
	return tick.IsNewerThan(r.chunk.columns[r.idB].added[r.row], r.lastRun, r.thisRun)
}

// ChangedB reports whether B was changed after lastRun and no later than thisRun.
func (r Row2[A, B]) ChangedB() bool {
	return tick.IsNewerThan(r.chunk.columns[r.idB].changed[r.row], r.lastRun, r.thisRun)
}

// MarkChangedB stamps thisRun into B's changed-tick for this row.
func (r Row2[A, B]) MarkChangedB() { r.chunk.columns[r.idB].changed[r.row] = r.thisRun }

// ForEach visits every matching entity, in archetype then chunk then row
// order, with A and B advancing in lock-step for each row.
func (q *Query2[A, B]) ForEach(lastRun, thisRun Tick, fn func(Row2[A, B])) {
	q.w.mu.RLock()
	defer q.w.mu.RUnlock()
	q.refresh()
	for _, a := range q.cache.matched {
		for _, c := range a.chunks {
			colA := c.columns[q.idA]
			colB := c.columns[q.idB]
			for row := 0; row < c.len; row++ {
				fn(Row2[A, B]{
					Entity:  c.entities[row],
					A:       (*A)(colA.ptrAt(row)),
					B:       (*B)(colB.ptrAt(row)),
					chunk:   c,
					row:     row,
					idA:     q.idA,
					idB:     q.idB,
					lastRun: lastRun,
					thisRun: thisRun,
				})
			}
		}
	}
}

// Get returns the row for a specific entity, or false if e doesn't match
// the query.
func (q *Query2[A, B]) Get(e Entity, lastRun, thisRun Tick) (Row2[A, B], bool) {
	q.w.mu.RLock()
	defer q.w.mu.RUnlock()
	if !q.w.entities.isCurrent(e) {
		return Row2[A, B]{}, false
	}
	rec := q.w.records[e.Index()]
	if !rec.alive || !q.archetypeMatches(rec.archetype) {
		return Row2[A, B]{}, false
	}
	colA := rec.chunk.columns[q.idA]
	colB := rec.chunk.columns[q.idB]
	return Row2[A, B]{
		Entity:  e,
		A:       (*A)(colA.ptrAt(rec.row)),
		B:       (*B)(colB.ptrAt(rec.row)),
		chunk:   rec.chunk,
		row:     rec.row,
		idA:     q.idA,
		idB:     q.idB,
		lastRun: lastRun,
		thisRun: thisRun,
	}, true
}

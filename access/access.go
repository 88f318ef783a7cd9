// Package access tracks, per system, which component and resource IDs a
// system reads and writes, and the with/without filters its queries carry.
// The scheduler calls into this package during schedule build to detect
// pairs of systems whose declared access overlaps in a way that makes their
// relative execution order observable and therefore unsafe to leave
// unordered.
//
// Access is tracked as precomputed bitsets over dense registry.ID keys for
// cheap pairwise comparison, extended with the with/without DNF clauses a
// query contributes so two systems that touch the same IDs can still be
// proven safe to run unordered when their clauses can never both match the
// same archetype.
//
// © 2025 verseengine authors. MIT License.
package access

import (
	"github.com/xentripetal/verseengine/internal/bitset"
	"github.com/xentripetal/verseengine/registry"
)

// Access records the component/resource IDs one system touches, split into
// reads and writes (writes is always a subset of reads: something a system
// writes, it can also observe). readsAll/writesAll stand in for "touches
// every component of this namespace", used by exclusive systems and
// reflection-driven tooling that can't enumerate its access up front.
type Access struct {
	reads, writes   *bitset.Set
	readsAll        bool
	writesAll       bool
}

// NewAccess returns an empty Access ready for AddRead/AddWrite calls.
func NewAccess() *Access {
	return &Access{reads: bitset.New(0), writes: bitset.New(0)}
}

// AddRead records a read of id.
func (a *Access) AddRead(id registry.ID) { a.reads.Set(int(id)) }

// AddWrite records a write of id; writes imply a read of the same id.
func (a *Access) AddWrite(id registry.ID) {
	a.writes.Set(int(id))
	a.reads.Set(int(id))
}

// SetReadsAll marks this access as touching every component/resource for
// read purposes, e.g. for systems operating through reflection.
func (a *Access) SetReadsAll() { a.readsAll = true }

// SetWritesAll marks this access as touching every component/resource for
// write purposes. Implies SetReadsAll.
func (a *Access) SetWritesAll() { a.writesAll = true; a.readsAll = true }

// ReadsAll reports whether this access claims to touch every id for reads.
func (a *Access) ReadsAll() bool { return a.readsAll }

// WritesAll reports whether this access claims to touch every id for writes.
func (a *Access) WritesAll() bool { return a.writesAll }

// Conflicts reports whether a and b cannot safely run in either order, per
// the rule: incompatible iff either claims writesAll and the other touches
// anything, or one's writes overlaps the other's reads.
func (a *Access) Conflicts(b *Access) bool {
	if a.writesAll && (b.readsAll || b.writesAll || b.reads.HasAnySet() || b.writes.HasAnySet()) {
		return true
	}
	if b.writesAll && (a.readsAll || a.writesAll || a.reads.HasAnySet() || a.writes.HasAnySet()) {
		return true
	}
	if a.readsAll && b.writes.HasAnySet() {
		return true
	}
	if b.readsAll && a.writes.HasAnySet() {
		return true
	}
	return a.writes.Overlaps(b.reads) || b.writes.Overlaps(a.reads)
}

// GetConflicts returns the set of component/resource IDs that make a and b
// incompatible: the symmetric overlap of each one's writes against the
// other's reads.
func (a *Access) GetConflicts(b *Access) *bitset.Set {
	out := a.writes.Clone()
	out.And(b.reads)
	bw := b.writes.Clone()
	bw.And(a.reads)
	out.Or(bw)
	return out
}

// clause is one disjunct of a with/without DNF filter: all ids in with must
// be present, none in without may be present.
type clause struct {
	with    *bitset.Set
	without *bitset.Set
}

// excludes reports whether c and other can never both match the same
// archetype: one side requires an id the other forbids.
func (c clause) excludes(other clause) bool {
	return c.with.Overlaps(other.without) || other.with.Overlaps(c.without)
}

// FilteredAccess pairs an Access with the with/without clauses a query's
// terms contribute, plus a required bitset (the union of every With/Without
// id, used by the query engine to prune archetype-graph traversal before
// per-clause matching).
type FilteredAccess struct {
	Access   *Access
	clauses  []clause
	required *bitset.Set
}

// NewFilteredAccess returns a FilteredAccess with one empty clause, wrapping
// the given Access.
func NewFilteredAccess(a *Access) *FilteredAccess {
	return &FilteredAccess{
		Access:   a,
		clauses:  []clause{{with: bitset.New(0), without: bitset.New(0)}},
		required: bitset.New(0),
	}
}

// AddWithTerm records that the current clause requires id to be present.
func (fa *FilteredAccess) AddWithTerm(id registry.ID) {
	last := &fa.clauses[len(fa.clauses)-1]
	last.with.Set(int(id))
	fa.required.Set(int(id))
}

// AddWithoutTerm records that the current clause requires id to be absent.
func (fa *FilteredAccess) AddWithoutTerm(id registry.ID) {
	last := &fa.clauses[len(fa.clauses)-1]
	last.without.Set(int(id))
	fa.required.Set(int(id))
}

// NewClause starts a fresh disjunct; subsequent AddWithTerm/AddWithoutTerm
// calls apply to it. Used by queries that express an Or across With/Without
// groups.
func (fa *FilteredAccess) NewClause() {
	fa.clauses = append(fa.clauses, clause{with: bitset.New(0), without: bitset.New(0)})
}

// Compatible reports whether fa and other may run in either relative order
// without an observable race: either their underlying Access is conflict
// free, or every pair of clauses across the two DNFs is mutually exclusive.
func (fa *FilteredAccess) Compatible(other *FilteredAccess) bool {
	if !fa.Access.Conflicts(other.Access) {
		return true
	}
	for _, c1 := range fa.clauses {
		for _, c2 := range other.clauses {
			if !c1.excludes(c2) {
				return false
			}
		}
	}
	return true
}

// FilteredAccessSet aggregates every FilteredAccess a single system's
// queries and resource parameters contribute, plus its combined Access,
// used directly in pairwise conflict checks during schedule build.
type FilteredAccessSet struct {
	Combined *Access
	filtered []*FilteredAccess
}

// NewFilteredAccessSet returns an empty set.
func NewFilteredAccessSet() *FilteredAccessSet {
	return &FilteredAccessSet{Combined: NewAccess()}
}

// Add folds fa into the set: its Access is merged into Combined and fa
// itself is kept for per-clause compatibility checks against other systems.
func (s *FilteredAccessSet) Add(fa *FilteredAccess) {
	s.filtered = append(s.filtered, fa)
	s.Combined.reads.Or(fa.Access.reads)
	s.Combined.writes.Or(fa.Access.writes)
	if fa.Access.readsAll {
		s.Combined.readsAll = true
	}
	if fa.Access.writesAll {
		s.Combined.writesAll = true
	}
}

// Compatible reports whether every FilteredAccess in s is compatible with
// every FilteredAccess in other. Two systems with no ordering edge must
// satisfy this for schedule build to accept them unordered.
func (s *FilteredAccessSet) Compatible(other *FilteredAccessSet) bool {
	for _, a := range s.filtered {
		for _, b := range other.filtered {
			if !a.Compatible(b) {
				return false
			}
		}
	}
	return true
}

// GetConflicts returns the conflicting component/resource IDs between s and
// other's combined access, ignoring any id on ignored's list. Used by the
// scheduler to render a diagnostic naming exactly what two unordered
// systems disagree about.
func (s *FilteredAccessSet) GetConflicts(other *FilteredAccessSet, ignored *GloballyIgnoredAmbiguities) *bitset.Set {
	out := s.Combined.GetConflicts(other.Combined)
	if ignored != nil {
		return ignored.Filter(out)
	}
	return out
}

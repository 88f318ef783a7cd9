package access

import (
	"testing"

	"github.com/xentripetal/verseengine/registry"
)

func TestAccessConflictsOnOverlappingWriteRead(t *testing.T) {
	a := NewAccess()
	a.AddWrite(1)
	b := NewAccess()
	b.AddRead(1)

	if !a.Conflicts(b) {
		t.Fatalf("a writes what b reads: expected conflict")
	}
	conflicts := a.GetConflicts(b)
	if !conflicts.Test(1) {
		t.Fatalf("expected id 1 in conflict set, got %v", conflicts.Slice())
	}
}

func TestAccessNoConflictOnDisjointReads(t *testing.T) {
	a := NewAccess()
	a.AddRead(1)
	b := NewAccess()
	b.AddRead(2)

	if a.Conflicts(b) {
		t.Fatalf("two readers of different ids must not conflict")
	}
}

func TestAccessWritesAllConflictsWithAnything(t *testing.T) {
	a := NewAccess()
	a.SetWritesAll()
	b := NewAccess()
	b.AddRead(5)

	if !a.Conflicts(b) {
		t.Fatalf("writesAll must conflict with any touch")
	}
}

func TestFilteredAccessCompatibleWhenClausesMutuallyExclusive(t *testing.T) {
	wa := NewAccess()
	wa.AddWrite(1)
	rb := NewAccess()
	rb.AddRead(1)

	fa := NewFilteredAccess(wa)
	fa.AddWithTerm(10) // requires component 10

	fb := NewFilteredAccess(rb)
	fb.AddWithoutTerm(10) // excludes component 10

	if !fa.Compatible(fb) {
		t.Fatalf("with(10) and without(10) clauses can never match the same archetype, so access conflict is unobservable")
	}
}

func TestFilteredAccessIncompatibleWhenClausesOverlap(t *testing.T) {
	wa := NewAccess()
	wa.AddWrite(1)
	rb := NewAccess()
	rb.AddRead(1)

	fa := NewFilteredAccess(wa)
	fa.AddWithTerm(10)
	fb := NewFilteredAccess(rb)
	fb.AddWithTerm(10)

	if fa.Compatible(fb) {
		t.Fatalf("both queries can match archetypes with component 10: conflict should surface")
	}
}

func TestFilteredAccessSetAggregatesCombined(t *testing.T) {
	set := NewFilteredAccessSet()
	a := NewAccess()
	a.AddWrite(1)
	set.Add(NewFilteredAccess(a))

	other := NewFilteredAccessSet()
	b := NewAccess()
	b.AddRead(1)
	other.Add(NewFilteredAccess(b))

	if set.Compatible(other) {
		t.Fatalf("expected incompatible sets: write/read overlap on id 1")
	}
}

func TestGloballyIgnoredAmbiguitiesFiltersConflicts(t *testing.T) {
	a := NewAccess()
	a.AddWrite(1)
	a.AddWrite(2)
	b := NewAccess()
	b.AddRead(1)
	b.AddRead(2)

	conflicts := a.GetConflicts(b)
	if conflicts.Count() != 2 {
		t.Fatalf("expected 2 conflicting ids, got %v", conflicts.Slice())
	}

	ignore := NewGloballyIgnoredAmbiguities()
	ignore.Ignore(registry.ID(1))
	filtered := ignore.Filter(conflicts)
	if filtered.Count() != 1 || !filtered.Test(2) {
		t.Fatalf("expected only id 2 left after ignoring id 1, got %v", filtered.Slice())
	}
}

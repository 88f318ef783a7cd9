package ecs

import (
	"testing"

	"github.com/xentripetal/verseengine/registry"
)

func TestArchetypeTableHashCollisionResolvedByComponentSet(t *testing.T) {
	tbl := newArchetypeTable()

	a := tbl.getOrCreate([]registry.ID{1, 2}, nil)
	b := tbl.getOrCreate([]registry.ID{3, 4}, nil)

	// Force a synthetic collision by dropping b into a's bucket alongside a,
	// simulating two distinct component sets that happen to hash the same.
	tbl.byHash[a.hash] = append(tbl.byHash[a.hash], b)

	if got := tbl.getOrCreate([]registry.ID{1, 2}, nil); got != a {
		t.Fatalf("expected the exact component-set match despite sharing a's bucket, got archetype %d", got.id)
	}
	if got := tbl.getOrCreate([]registry.ID{3, 4}, nil); got != b {
		t.Fatalf("expected b to still resolve correctly out of the shared bucket, got archetype %d", got.id)
	}

	before := len(tbl.byIndex)
	third := tbl.getOrCreate([]registry.ID{5, 6}, nil)
	if third == a || third == b {
		t.Fatalf("a third component set matching neither bucket entry must intern as new, got existing archetype %d", third.id)
	}
	if len(tbl.byIndex) != before+1 {
		t.Fatalf("expected exactly one new archetype to be interned")
	}
}

func TestSameComponentsHelper(t *testing.T) {
	if !sameComponents([]registry.ID{1, 2, 3}, []registry.ID{1, 2, 3}) {
		t.Fatalf("identical sorted slices must compare equal")
	}
	if sameComponents([]registry.ID{1, 2}, []registry.ID{1, 2, 3}) {
		t.Fatalf("different lengths must not compare equal")
	}
	if sameComponents([]registry.ID{1, 2, 3}, []registry.ID{1, 2, 4}) {
		t.Fatalf("differing element must not compare equal")
	}
}

package access

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/xentripetal/verseengine/internal/bitset"
	"github.com/xentripetal/verseengine/registry"
)

// GloballyIgnoredAmbiguities holds the set of component/resource IDs that
// schedule build should never report as the cause of a conflict, even when
// two unordered systems both touch them. It's shared by a whole World
// (typically populated once at startup with IDs for change-detection-only
// bookkeeping components), so it uses a roaring bitmap rather than the
// dense internal/bitset.Set the rest of this package uses per-system: the
// ignore list is read far more often than written and can, in a world with
// many registered component types, be sparse relative to the dense
// namespace size.
type GloballyIgnoredAmbiguities struct {
	bitmap *roaring.Bitmap
}

// NewGloballyIgnoredAmbiguities returns an empty ignore list.
func NewGloballyIgnoredAmbiguities() *GloballyIgnoredAmbiguities {
	return &GloballyIgnoredAmbiguities{bitmap: roaring.New()}
}

// Ignore adds id to the ignore list.
func (g *GloballyIgnoredAmbiguities) Ignore(id registry.ID) {
	g.bitmap.Add(uint32(id))
}

// IsIgnored reports whether id is on the ignore list.
func (g *GloballyIgnoredAmbiguities) IsIgnored(id registry.ID) bool {
	return g.bitmap.Contains(uint32(id))
}

// Filter returns a copy of conflicts with every ignored bit cleared — the
// IDs, if any, that still make two systems genuinely incompatible.
func (g *GloballyIgnoredAmbiguities) Filter(conflicts *bitset.Set) *bitset.Set {
	out := conflicts.Clone()
	it := g.bitmap.Iterator()
	for it.HasNext() {
		out.Clear(int(it.Next()))
	}
	return out
}

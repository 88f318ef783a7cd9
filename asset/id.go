// Package asset implements the asset server: index allocation, strong/GUID
// handles, the dependency-aware load tracker, and the Server that drives
// loaders against a pluggable AssetSource.
//
// © 2025 verseengine authors. MIT License.
package asset

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Index is a dense, generational numeric asset identifier: the slot field
// names a slot in the per-type asset collection, the generation distinguishes
// reuses of that slot after the asset occupying it was dropped.
type Index struct {
	slot       uint32
	generation uint32
}

// Slot returns the dense storage slot this index addresses.
func (i Index) Slot() uint32 { return i.slot }

// Generation returns the reuse counter for this index's slot.
func (i Index) Generation() uint32 { return i.generation }

// ID is the tagged union identifying one asset: either a generational
// dense Index or a user-assigned GUID, plus the Go type of the asset it
// names. Two IDs for different AssetType values are never equal even if
// their Index/Guid bits coincide.
type ID struct {
	isGuid bool
	index  Index
	guid   uuid.UUID
	typ    AssetType
}

// AssetType tags an ID (and a Handle) with the Go type of the asset data,
// assigned by the asset package's own dense type registry (type.go).
type AssetType uint32

// IndexID builds an ID around a dense Index.
func IndexID(idx Index, typ AssetType) ID { return ID{index: idx, typ: typ} }

// GuidID builds an ID around a user-assigned GUID.
func GuidID(g uuid.UUID, typ AssetType) ID { return ID{isGuid: true, guid: g, typ: typ} }

// IsGuid reports whether this ID carries a GUID rather than a dense Index.
func (a ID) IsGuid() bool { return a.isGuid }

// Index returns the dense index this ID carries. Only meaningful when
// IsGuid() is false.
func (a ID) Index() Index { return a.index }

// Guid returns the GUID this ID carries. Only meaningful when IsGuid() is
// true.
func (a ID) Guid() uuid.UUID { return a.guid }

// Type returns the asset's registered type tag.
func (a ID) Type() AssetType { return a.typ }

// recycledSlot is what travels through the allocator's two channels: a
// freed slot and the generation a reused Index for that slot must carry.
type recycledSlot struct {
	slot       uint32
	generation uint32
}

// Allocator hands out dense Index values for one asset type's storage: a
// monotonic counter for fresh slots, plus a recycled-queue of freed slots
// and a recycled-storage-sink the dense collection drains to reset a
// slot's backing storage before the recycled Index is reused. Both
// channels are MPMC by virtue of being plain Go channels with multiple
// goroutines racing to send/receive.
type Allocator struct {
	next      atomic.Uint32
	recycled  chan recycledSlot
	sinkReset chan recycledSlot
}

// NewAllocator returns an Allocator whose recycle channels can hold up to
// capacity pending entries before a Release call blocks.
func NewAllocator(capacity int) *Allocator {
	if capacity < 1 {
		capacity = 1
	}
	return &Allocator{
		recycled:  make(chan recycledSlot, capacity),
		sinkReset: make(chan recycledSlot, capacity),
	}
}

// Reserve returns a fresh Index: a recycled slot with its generation
// bumped if one is pending, otherwise a brand-new slot at generation 1.
func (a *Allocator) Reserve() Index {
	select {
	case r := <-a.recycled:
		gen := r.generation + 1
		a.sinkReset <- recycledSlot{slot: r.slot, generation: gen}
		return Index{slot: r.slot, generation: gen}
	default:
		slot := a.next.Add(1) - 1
		return Index{slot: slot, generation: 1}
	}
}

// Release returns idx's slot to the recycle queue so a future Reserve can
// reuse it at the next generation.
func (a *Allocator) Release(idx Index) {
	a.recycled <- recycledSlot{slot: idx.slot, generation: idx.generation}
}

// DrainStorageResets calls reset for every recycled slot published since
// the last drain, letting the dense asset collection clear a slot's old
// value before the recycled Index is handed out again. Call once per tick
// from the same goroutine that owns the collection.
func (a *Allocator) DrainStorageResets(reset func(slot uint32)) {
	for {
		select {
		case r := <-a.sinkReset:
			reset(r.slot)
		default:
			return
		}
	}
}

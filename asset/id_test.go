package asset

import "testing"

func TestAllocatorReservesFreshIndicesAtGenerationOne(t *testing.T) {
	a := NewAllocator(4)
	i0 := a.Reserve()
	i1 := a.Reserve()
	if i0.Slot() == i1.Slot() {
		t.Fatalf("expected distinct slots, got %d and %d", i0.Slot(), i1.Slot())
	}
	if i0.Generation() != 1 || i1.Generation() != 1 {
		t.Fatalf("fresh indices must start at generation 1, got %d and %d", i0.Generation(), i1.Generation())
	}
}

func TestAllocatorRecyclesSlotAtNextGeneration(t *testing.T) {
	a := NewAllocator(4)
	i0 := a.Reserve()
	a.Release(i0)

	i1 := a.Reserve()
	if i1.Slot() != i0.Slot() {
		t.Fatalf("expected the released slot %d to be reused, got %d", i0.Slot(), i1.Slot())
	}
	if i1.Generation() != i0.Generation()+1 {
		t.Fatalf("expected generation to bump on reuse: got %d, want %d", i1.Generation(), i0.Generation()+1)
	}
}

func TestAllocatorDrainsStorageResetForRecycledSlot(t *testing.T) {
	a := NewAllocator(4)
	i0 := a.Reserve()
	a.Release(i0)
	_ = a.Reserve()

	var resetSlots []uint32
	a.DrainStorageResets(func(slot uint32) { resetSlots = append(resetSlots, slot) })
	if len(resetSlots) != 1 || resetSlots[0] != i0.Slot() {
		t.Fatalf("expected exactly one reset for slot %d, got %v", i0.Slot(), resetSlots)
	}
}

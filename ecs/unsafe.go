package ecs

import (
	"unsafe"

	"github.com/xentripetal/verseengine/internal/unsafehelpers"
)

// copyRaw copies n bytes from src to dst, viewing both through
// unsafehelpers so the raw byte-level move used when an entity changes
// archetype stays in one audited spot alongside the rest of this package's
// unsafe pointer arithmetic.
func copyRaw(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	dstSlice := unsafehelpers.ByteSliceFrom(dst, n)
	srcSlice := unsafehelpers.ByteSliceFrom(src, n)
	copy(dstSlice, srcSlice)
}

//go:build goexperiment.arenas
// +build goexperiment.arenas

// This file backs package arena (see doc.go for the package doc comment)
// with the standard library's experimental `arena` package, active only
// when the toolchain is built with GOEXPERIMENT=arenas. See arena_stable.go
// for the default build.
//
// ⚠️  DISCLAIMER  ----------------------------------------------
// Using arenas bypasses the garbage collector; ensure objects allocated inside
// never escape to the heap **after** Free() is called. In verseengine this is
// safe because a chunk's arena lives at most until the chunk is torn down
// (its owning archetype is dropped) or, for the asset store, until a
// generation rotates out.
// -------------------------------------------------------------
//
// © 2025 verseengine authors. MIT License.

package arena

import (
	"arena" // standard library experimental package
	"unsafe"
)

// Arena is a thin new‑type wrapper that prevents external packages from
// directly depending on `arena.Arena`, giving us the freedom to switch to a
// different allocator if needed.

type Arena struct{ ar arena.Arena }

// New constructs an empty arena ready for allocations.
func New() *Arena {
	var ar arena.Arena
	return &Arena{ar: ar} // Initialize the internal arena.Arena correctly
}

// Free releases **all** memory allocated in the arena.  After the call, any
// pointer previously returned from New/MakeSlice becomes invalid.
func (a *Arena) Free() {
	a.ar = arena.Arena{} // Reset the arena to a new instance
}

// NewValue allocates zero‑initialised T inside the arena and returns a pointer to it.
// The pointer is valid until Free() on the arena.
func NewValue[T any](a *Arena) *T { return arena.New[T](&a.ar) }

// MakeSlice allocates a slice of length==cap==n inside the arena and returns
// it.  The backing array is owned by the arena and will be released on Free().
func MakeSlice[T any](a *Arena, n int) []T { return arena.MakeSlice[T](&a.ar, n, n) }

// AllocBytes copies buf into the arena and returns a reference to the new
// memory.  Convenience helper for column byte buffers that must outlive the
// call that filled them.
func AllocBytes(a *Arena, buf []byte) []byte {
	dst := arena.MakeSlice[byte](&a.ar, len(buf), len(buf))
	copy(dst, buf)
	return dst
}

// UnsafePointer converts an *arena-backed* pointer to unsafe.Pointer so that it
// can be stored inside cache metadata.  Usage is rare; provided for
// completeness.
func UnsafePointer[T any](p *T) unsafe.Pointer { return unsafe.Pointer(p) }

//go:build !goexperiment.arenas
// +build !goexperiment.arenas

// This file backs package arena (see doc.go for the package doc comment)
// for ordinary builds, where GOEXPERIMENT=arenas is not set. It offers the
// exact same surface as arena_exp.go but keeps allocations on the normal Go
// heap: Free drops the backing slices for the GC to reclaim instead of
// releasing them in one O(1) step. Chunks and generations still get the
// property that matters most to their callers — a stable address for the
// lifetime of the arena — just without bypassing the collector.
//
// © 2025 verseengine authors. MIT License.

package arena

import "unsafe"

// Arena is a thin new-type wrapper so callers never depend on which
// allocation strategy backs a given build. In this fallback it owns a list
// of heap-allocated blocks; Free drops the references.
type Arena struct {
	blocks []any
}

// New constructs an empty arena ready for allocations.
func New() *Arena {
	return &Arena{}
}

// Free releases the arena's references to its allocated blocks. Unlike the
// experimental-arena build, memory is reclaimed by the garbage collector on
// its own schedule rather than instantly; callers must still treat any
// pointer obtained before Free as invalid afterwards, since nothing in this
// package promises value stability past Free.
func (a *Arena) Free() {
	a.blocks = nil
}

// NewValue allocates a zero-initialised T "inside" the arena (in this build,
// simply on the heap) and returns a pointer to it. The arena keeps a
// reference so the value cannot be collected while the arena is alive.
func NewValue[T any](a *Arena) *T {
	v := new(T)
	a.blocks = append(a.blocks, v)
	return v
}

// MakeSlice allocates a slice of length==cap==n, pinned by a reference held
// in the arena for as long as the arena itself is alive.
func MakeSlice[T any](a *Arena, n int) []T {
	s := make([]T, n)
	a.blocks = append(a.blocks, s)
	return s
}

// AllocBytes copies buf into a new arena-owned byte slice.
func AllocBytes(a *Arena, buf []byte) []byte {
	dst := MakeSlice[byte](a, len(buf))
	copy(dst, buf)
	return dst
}

// UnsafePointer converts an arena-backed pointer to unsafe.Pointer so it can
// be stored inside column metadata alongside tick stamps.
func UnsafePointer[T any](p *T) unsafe.Pointer { return unsafe.Pointer(p) }

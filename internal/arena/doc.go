// Package arena provides the raw, GC-bypassing-when-possible column storage
// that backs archetype chunks (ecs/chunk.go) and the asset store's
// generation-rotated collections (asset/store).  Both consumers share the
// same need: allocate a block of memory that lives exactly as long as its
// owning chunk or generation, release it in one step, and keep in-flight
// pointers into it stable for the duration of an iteration.
//
// The package exposes one tiny surface — New, Free, NewValue, MakeSlice,
// AllocBytes, UnsafePointer — so callers never depend on which allocation
// strategy backs it. arena_exp.go wraps the standard library's experimental
// `arena` package when the toolchain is built with GOEXPERIMENT=arenas;
// arena_stable.go is the default, GC-backed fallback used by ordinary
// builds. Exactly one of the two is compiled, selected by build tag.
//
// Concurrency: Arena is not thread-safe. In verseengine the owning chunk or
// shard already serializes access through the world's or store's lock, so
// no locking is added here.
//
// © 2025 verseengine authors. MIT License.
package arena

package store

// loaderfunc.go defines LoaderFunc – the callback that produces an asset's
// decoded bytes when Cache.GetOrLoad misses, typically by reading through to
// the slow asset.AssetSource the store fronts.  We place it in its own file
// so that it can be imported by the other files in this package (store.go,
// loader.go, etc.) without causing an import cycle.
//
// • The function must be **pure** and side‑effect free with regard to the
//   cache itself: it MUST NOT call Cache.Put or re‑enter the same Cache it
//   serves, otherwise deadlock or inconsistent state may occur.
// • It should honour the provided context for cancellation and deadlines.
// • If the loader returns an error, the asset's bytes are not stored in the
//   cache and the error is propagated to the caller of GetOrLoad.
//
// K – key type, comparable (same as Cache) – typically an asset.ID or path hash.
// V – the decoded asset payload type.
//
// © 2025 verseengine authors. MIT License.

import "context"

// LoaderFunc is invoked by GetOrLoad when an asset's key is absent from the
// cache. Implementations should return the decoded payload to cache or an
// error. The same LoaderFunc instance may be invoked concurrently for
// different keys; it must therefore be thread‑safe.

type LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

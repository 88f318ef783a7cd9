package asset

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/xentripetal/verseengine/asset/store"
)

// CachedSource wraps a slow AssetSource (a filesystem directory, a Badger
// store) with the sharded, CLOCK-Pro byte cache: repeated reads of the same
// path collapse into one underlying Read via the cache's singleflight group,
// and the bytes themselves live off the GC heap until their generation rotates
// out. Meta sidecars are small and read rarely, so only asset bytes are
// cached; ReadMeta and the directory-walk methods pass straight through.
type CachedSource struct {
	inner AssetSource
	bytes *store.Cache[string, []byte]
}

// NewCachedSource builds a CachedSource with capBytes total budget spread
// across shards shards, holding entries for up to ttl before their
// generation is eligible for rotation.
func NewCachedSource(inner AssetSource, capBytes int64, ttl time.Duration, shards uint8) (*CachedSource, error) {
	cache, err := store.New[string, []byte](capBytes, ttl, shards,
		store.WithWeightFn[string, []byte](func(b []byte) int { return len(b) }),
	)
	if err != nil {
		return nil, err
	}
	return &CachedSource{inner: inner, bytes: cache}, nil
}

func (c *CachedSource) Read(path string) (io.ReadCloser, error) {
	b, err := c.bytes.GetOrLoad(context.Background(), path, func(ctx context.Context, path string) ([]byte, error) {
		r, err := c.inner.Read(path)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (c *CachedSource) ReadMeta(path string) (io.ReadCloser, error) { return c.inner.ReadMeta(path) }

func (c *CachedSource) IsDirectory(path string) (bool, error) { return c.inner.IsDirectory(path) }

func (c *CachedSource) ListDirectoryContents(path string) ([]string, error) {
	return c.inner.ListDirectoryContents(path)
}

// Invalidate drops path's cached bytes, forcing the next Read to go to the
// underlying source. Callers wire this to a source watcher's EventModified.
func (c *CachedSource) Invalidate(path string) { c.bytes.Delete(context.Background(), path) }

// Close releases the cache's shard resources.
func (c *CachedSource) Close() { c.bytes.Close() }

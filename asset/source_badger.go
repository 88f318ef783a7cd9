package asset

import (
	"bytes"
	"io"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerSource is a persistent, crash-tolerant AssetSource backed by an
// embedded Badger database: asset bytes live under key `a:<path>`, meta
// sidecars under `m:<path>`.
type BadgerSource struct {
	db *badger.DB
}

// NewBadgerSource wraps an already opened db as an AssetSource. The caller
// keeps ownership of db and closes it.
func NewBadgerSource(db *badger.DB) *BadgerSource {
	return &BadgerSource{db: db}
}

func assetKey(path string) []byte { return []byte("a:" + path) }
func metaKey(path string) []byte  { return []byte("m:" + path) }

func (b *BadgerSource) read(key []byte) (io.ReadCloser, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			out = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(out)), nil
}

// Read returns path's asset bytes.
func (b *BadgerSource) Read(path string) (io.ReadCloser, error) { return b.read(assetKey(path)) }

// ReadMeta returns path's meta sidecar bytes.
func (b *BadgerSource) ReadMeta(path string) (io.ReadCloser, error) { return b.read(metaKey(path)) }

// Put writes path's asset bytes, replacing any existing value.
func (b *BadgerSource) Put(path string, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error { return txn.Set(assetKey(path), data) })
}

// PutMeta writes path's meta sidecar bytes.
func (b *BadgerSource) PutMeta(path string, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error { return txn.Set(metaKey(path), data) })
}

// IsDirectory always reports false: Badger has no directory hierarchy, so
// every path names a leaf key or nothing.
func (b *BadgerSource) IsDirectory(path string) (bool, error) { return false, nil }

// ListDirectoryContents lists every asset key (not meta keys) whose path
// has the given prefix, treating `/`-separated keys as a directory tree.
func (b *BadgerSource) ListDirectoryContents(path string) ([]string, error) {
	prefix := assetKey(strings.TrimSuffix(path, "/") + "/")
	var out []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			out = append(out, strings.TrimPrefix(key, "a:"))
		}
		return nil
	})
	return out, err
}

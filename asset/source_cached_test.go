package asset

import (
	"io"
	"sync/atomic"
	"testing"
	"time"
)

type countingSource struct {
	*MapSource
	reads atomic.Int32
}

func (c *countingSource) Read(path string) (io.ReadCloser, error) {
	c.reads.Add(1)
	return c.MapSource.Read(path)
}

func TestCachedSourceCollapsesRepeatedReads(t *testing.T) {
	inner := &countingSource{MapSource: NewMapSource()}
	inner.Put("a.bin", []byte("payload"))

	src, err := NewCachedSource(inner, 1<<20, time.Minute, 1)
	if err != nil {
		t.Fatalf("NewCachedSource: %v", err)
	}
	defer src.Close()

	for i := 0; i < 3; i++ {
		r, err := src.Read("a.bin")
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		b, _ := io.ReadAll(r)
		r.Close()
		if string(b) != "payload" {
			t.Fatalf("expected payload, got %q", b)
		}
	}
	if inner.reads.Load() != 1 {
		t.Fatalf("expected exactly one underlying read, got %d", inner.reads.Load())
	}
}

func TestCachedSourceInvalidateForcesRereadAfterChange(t *testing.T) {
	inner := &countingSource{MapSource: NewMapSource()}
	inner.Put("a.bin", []byte("v1"))

	src, err := NewCachedSource(inner, 1<<20, time.Minute, 1)
	if err != nil {
		t.Fatalf("NewCachedSource: %v", err)
	}
	defer src.Close()

	r, _ := src.Read("a.bin")
	b, _ := io.ReadAll(r)
	r.Close()
	if string(b) != "v1" {
		t.Fatalf("expected v1, got %q", b)
	}

	inner.Put("a.bin", []byte("v2"))
	src.Invalidate("a.bin")

	r, _ = src.Read("a.bin")
	b, _ = io.ReadAll(r)
	r.Close()
	if string(b) != "v2" {
		t.Fatalf("expected v2 after invalidation, got %q", b)
	}
}

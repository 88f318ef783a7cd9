package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCachePutGet(t *testing.T) {
	c, err := New[string, int](1<<20, time.Minute, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Put(context.Background(), "a", 42, 1)
	if got, err := c.GetOrLoad(context.Background(), "a", func(ctx context.Context, key string) (int, error) {
		t.Fatalf("loader should not run for a value already in the cache")
		return 0, nil
	}); err != nil || got != 42 {
		t.Fatalf("expected (42, nil), got (%v, %v)", got, err)
	}
}

func TestCacheGetOrLoadDeduplicatesConcurrentMisses(t *testing.T) {
	c, err := New[string, int](1<<20, time.Minute, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	var calls atomic.Int32
	loader := func(ctx context.Context, key string) (int, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return 7, nil
	}

	done := make(chan int, 8)
	for i := 0; i < 8; i++ {
		go func() {
			v, err := c.GetOrLoad(context.Background(), "shared", loader)
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
			done <- v
		}()
	}
	for i := 0; i < 8; i++ {
		if got := <-done; got != 7 {
			t.Fatalf("expected 7, got %d", got)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one loader invocation, got %d", calls.Load())
	}
}

func TestCacheGetOrLoadPropagatesLoaderError(t *testing.T) {
	c, err := New[string, int](1<<20, time.Minute, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	boom := errors.New("boom")
	_, err = c.GetOrLoad(context.Background(), "x", func(ctx context.Context, key string) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestCacheDeleteForcesReload(t *testing.T) {
	c, err := New[string, int](1<<20, time.Minute, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Put(context.Background(), "a", 1, 1)
	c.Delete(context.Background(), "a")

	var called bool
	got, err := c.GetOrLoad(context.Background(), "a", func(ctx context.Context, key string) (int, error) {
		called = true
		return 2, nil
	})
	if err != nil || got != 2 || !called {
		t.Fatalf("expected reload after Delete, got (%v, %v, called=%v)", got, err, called)
	}
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	if _, err := New[string, int](0, time.Minute, 1); err == nil {
		t.Fatalf("expected error for capBytes <= 0")
	}
	if _, err := New[string, int](1<<20, 0, 1); err == nil {
		t.Fatalf("expected error for ttl <= 0")
	}
	if _, err := New[string, int](1<<20, time.Minute, 3); err == nil {
		t.Fatalf("expected error for non-power-of-two shards")
	}
}

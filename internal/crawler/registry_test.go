package crawler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistryRegisterOrBump(t *testing.T) {
	t.Parallel()

	t.Run("first encounter creates record", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if !r.RegisterOrBump("https://a.example") {
			t.Fatal("expected first call to create the record")
		}
		count, ok := r.HitCount("https://a.example")
		if !ok || count != 1 {
			t.Errorf("got (%d, %v), expected (1, true)", count, ok)
		}
	})

	t.Run("later encounters bump the count", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		r.RegisterOrBump("https://a.example")
		if r.RegisterOrBump("https://a.example") {
			t.Error("expected second call to report an existing record")
		}
		r.RegisterOrBump("https://a.example")

		count, _ := r.HitCount("https://a.example")
		if count != 3 {
			t.Errorf("got hit count %d, expected 3", count)
		}
		if r.Len() != 1 {
			t.Errorf("got %d records, expected 1", r.Len())
		}
	})

	t.Run("unknown URL", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if _, ok := r.HitCount("https://missing.example"); ok {
			t.Error("expected unknown URL to be absent")
		}
	})
}

func TestRegistryConcurrentClaims(t *testing.T) {
	t.Parallel()

	const (
		workers = 64
		urls    = 10
	)

	r := NewRegistry()
	var created atomic.Int64
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range urls {
				if r.RegisterOrBump(fmt.Sprintf("https://example.com/%d", i)) {
					created.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := created.Load(); got != urls {
		t.Errorf("%d callers observed created=true, expected %d", got, urls)
	}
	for url, count := range r.Snapshot() {
		if count != workers {
			t.Errorf("%s: got hit count %d, expected %d", url, count, workers)
		}
	}
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterOrBump("https://a.example")

	snapshot := r.Snapshot()
	snapshot["https://a.example"] = 100
	snapshot["https://b.example"] = 1

	if count, _ := r.HitCount("https://a.example"); count != 1 {
		t.Errorf("registry changed through snapshot: hit count %d", count)
	}
	if r.Len() != 1 {
		t.Errorf("registry changed through snapshot: %d records", r.Len())
	}
}

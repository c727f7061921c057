package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestManager_GetSet(t *testing.T) {
	m := NewManager(10)

	if _, ok := m.Get("missing"); ok {
		t.Error("Get() on empty cache returned ok")
	}

	entry := &CacheEntry{ETag: `"v1"`, Data: []byte(`[1]`)}
	m.Set("k", entry)

	got, ok := m.Get("k")
	if !ok {
		t.Fatal("Get() after Set() returned !ok")
	}
	if got.ETag != `"v1"` {
		t.Errorf("ETag = %q, want \"v1\"", got.ETag)
	}

	m.Set("k", &CacheEntry{ETag: `"v2"`})
	got, _ = m.Get("k")
	if got.ETag != `"v2"` {
		t.Errorf("ETag after overwrite = %q, want \"v2\"", got.ETag)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestManager_SkipsEntriesWithoutValidator(t *testing.T) {
	m := NewManager(10)
	m.Set("k", &CacheEntry{Data: []byte(`[]`)})
	m.Set("nil", nil)

	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestManager_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewManager(2)
	m.Set("a", &CacheEntry{ETag: "a"})
	m.Set("b", &CacheEntry{ETag: "b"})

	// Touch "a" so "b" becomes the eviction candidate.
	m.Get("a")
	m.Set("c", &CacheEntry{ETag: "c"})

	if _, ok := m.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := m.Get("a"); !ok {
		t.Error("expected a to be kept")
	}
	if _, ok := m.Get("c"); !ok {
		t.Error("expected c to be kept")
	}
}

func TestManager_Delete(t *testing.T) {
	m := NewManager(0)
	m.Set("k", &CacheEntry{ETag: "x"})
	m.Delete("k")
	m.Delete("never-set")

	if _, ok := m.Get("k"); ok {
		t.Error("Get() after Delete() returned ok")
	}
}

func TestManager_Concurrent(t *testing.T) {
	m := NewManager(50)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%60)
			m.Set(key, &CacheEntry{ETag: key})
			m.Get(key)
		}(i)
	}
	wg.Wait()

	if m.Len() > 50 {
		t.Errorf("Len() = %d, want <= 50", m.Len())
	}
}

package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := NewMemoryCache(1024)

	key := "test-key"
	value := []byte("test-value")

	if err := cache.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(retrieved) != string(value) {
		t.Errorf("Retrieved value mismatch: got %s, want %s", retrieved, value)
	}

	if !cache.Contains(key) {
		t.Error("Contains returned false for existing key")
	}
	if s := cache.Stats(); s.Size != int64(len(value)) || s.Items != 1 {
		t.Errorf("unexpected stats after put: %+v", s)
	}

	cache.Delete(key)
	if cache.Contains(key) {
		t.Error("Key still exists after delete")
	}
	if s := cache.Stats(); s.Size != 0 {
		t.Errorf("Size not zero after delete: %d", s.Size)
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	cache := NewMemoryCache(100)

	for i := 0; i < 5; i++ {
		if err := cache.Put(fmt.Sprintf("key%d", i), make([]byte, 20)); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}

	// Touch key0 so key1 becomes the least recently used.
	if _, ok := cache.Get("key0"); !ok {
		t.Fatal("key0 should be present")
	}

	if err := cache.Put("key5", make([]byte, 20)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if cache.Contains("key1") {
		t.Error("key1 should have been evicted")
	}
	for _, k := range []string{"key0", "key2", "key3", "key4", "key5"} {
		if !cache.Contains(k) {
			t.Errorf("%s should still be cached", k)
		}
	}
	if s := cache.Stats(); s.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", s.Evictions)
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	cache := NewMemoryCache(10)
	if err := cache.Put("big", make([]byte, 11)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("expected ErrItemTooLarge, got %v", err)
	}
}

func TestMemoryCache_UpdateExisting(t *testing.T) {
	cache := NewMemoryCache(100)

	_ = cache.Put("k", []byte("short"))
	_ = cache.Put("k", []byte("a longer value"))

	got, _ := cache.Get("k")
	if string(got) != "a longer value" {
		t.Errorf("got %q", got)
	}
	if s := cache.Stats(); s.Size != int64(len("a longer value")) || s.Items != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewMemoryCache(100)
	_ = cache.Put("k", []byte("v"))

	cache.Get("k")
	cache.Get("k")
	cache.Get("missing")

	s := cache.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("hits/misses = %d/%d", s.Hits, s.Misses)
	}
	if rate := s.HitRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("hit rate = %f", rate)
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("empty stats should have zero hit rate")
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(10 * 1024)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-%d", g, i%10)
				_ = cache.Put(key, []byte(key))
				cache.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if s := cache.Stats(); s.Size > 10*1024 {
		t.Errorf("cache grew past capacity: %d", s.Size)
	}
}

package cache

import (
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	c := New[string](10)
	defer c.Close()

	key := Key("gold", "https://example.com/gold")
	c.Set(key, "outcome")

	tests := []struct {
		name     string
		key      string
		maxAgeMs int
		wantHit  bool
	}{
		{"fresh", key, 60_000, true},
		{"lookup disabled", key, 0, false},
		{"unknown key", Key("gold", "https://example.com/other"), 60_000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := c.Get(tt.key, tt.maxAgeMs)
			if ok != tt.wantHit {
				t.Fatalf("Get() hit = %v, want %v", ok, tt.wantHit)
			}
			if ok && v != "outcome" {
				t.Errorf("Get() = %q", v)
			}
		})
	}
}

func TestGet_Stale(t *testing.T) {
	c := New[int](10)
	defer c.Close()

	c.Set("k", 1)
	c.mu.Lock()
	c.store["k"].createdAt = time.Now().Add(-time.Minute)
	c.mu.Unlock()

	if _, ok := c.Get("k", 1000); ok {
		t.Error("Get() returned an entry older than max age")
	}
}

func TestSet_EvictsOldest(t *testing.T) {
	c := New[int](2)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.mu.Lock()
	c.store["a"].createdAt = time.Now().Add(-time.Minute)
	c.mu.Unlock()
	c.Set("c", 3)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a", 3_600_000); ok {
		t.Error("oldest entry was not evicted")
	}
	if _, ok := c.Get("b", 3_600_000); !ok {
		t.Error("newer entry was evicted")
	}
}

func TestEvictOlderThan(t *testing.T) {
	c := New[int](10)
	defer c.Close()

	c.Set("old", 1)
	c.Set("new", 2)
	c.mu.Lock()
	c.store["old"].createdAt = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()

	c.evictOlderThan(time.Now().Add(-maxLifetime))
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

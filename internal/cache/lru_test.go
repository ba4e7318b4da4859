package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be deleted")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2021, 1, 1, 9, 0, 0, 0, time.UTC)
	c := NewLRUCache[bool](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", true)
	c.Set("y", true)
	now = now.Add(30 * time.Second)
	c.Set("y", true) // refreshed
	now = now.Add(45 * time.Second)

	if _, ok := c.Get("x"); ok {
		t.Fatal("x should have expired")
	}
	if n := NewJanitor(time.Hour, c).Sweep(); n != 0 {
		t.Fatalf("sweep removed %d, want 0 (x already dropped by Get)", n)
	}
	now = now.Add(time.Minute)
	if n := NewJanitor(time.Hour, c).Sweep(); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
}

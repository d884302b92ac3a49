package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintrack/internal/log"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock, *[]string) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []string
	c := NewLRUCache[string](size, ttl).OnEvict(func(key, _ string) {
		evicted = append(evicted, key)
	})
	c.now = clock.Now
	return c, clock, &evicted
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _, evicted := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if len(*evicted) != 1 || (*evicted)[0] != "b" {
		t.Fatalf("unexpected evictions %v", *evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock, evicted := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clock.Advance(2 * time.Minute)
	c.Set("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", n)
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c should still be present")
	}
	if len(*evicted) != 2 {
		t.Fatalf("expected both expired keys reported, got %v", *evicted)
	}
}

func TestLRUDeleteReportsEviction(t *testing.T) {
	c, _, evicted := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("a", "2") // replacement is not an eviction
	c.Delete("a")
	c.Delete("missing")
	if len(*evicted) != 1 {
		t.Fatalf("unexpected evictions %v", *evicted)
	}
}

func TestJanitorStopsOnCancel(t *testing.T) {
	c, clock, _ := newTestCache(10, time.Millisecond)
	c.Set("a", "1")
	clock.Advance(time.Second)

	j := NewJanitor(time.Millisecond, log.Discard(), c)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for c.Size() != 0 {
		select {
		case <-deadline:
			t.Fatal("janitor never swept")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClockedCache(ttl time.Duration) (*Cache[string], *clock) {
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New[string](ttl).WithClock(clk.Now), clk
}

func TestCacheBasicOperations(t *testing.T) {
	c := New[string](time.Minute)

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	if _, exists = c.Get("key2"); exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	c, clk := newClockedCache(10 * time.Minute)

	c.Set("USD", "rates")
	clk.Advance(9 * time.Minute)
	if _, ok := c.Get("USD"); !ok {
		t.Error("Expected entry to survive before TTL")
	}

	clk.Advance(time.Minute)
	if _, ok := c.Get("USD"); ok {
		t.Error("Expected entry to expire at TTL")
	}

	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestCacheSetWithTTL(t *testing.T) {
	c, clk := newClockedCache(time.Hour)

	c.SetWithTTL("short", "v", time.Second)
	clk.Advance(2 * time.Second)
	if _, ok := c.Get("short"); ok {
		t.Error("Expected custom TTL to apply")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New[int](time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("Expected a to be deleted")
	}

	c.Clear()
	for _, key := range []string{"b", "c"} {
		if _, ok := c.Get(key); ok {
			t.Errorf("Expected %s to be cleared", key)
		}
	}
	if got := c.GetStats().TotalKeys; got != 0 {
		t.Errorf("Expected 0 keys after clear, got %d", got)
	}
}

func TestCacheHitRate(t *testing.T) {
	c := New[string](time.Minute)
	if c.HitRate() != 0 {
		t.Error("Expected 0 hit rate for unused cache")
	}

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	if got := c.HitRate(); got != 75.0 {
		t.Errorf("Expected 75%% hit rate, got %.2f", got)
	}
}

func TestCacheCleanup(t *testing.T) {
	c, clk := newClockedCache(time.Minute)
	c.Set("old", "v")
	clk.Advance(30 * time.Second)
	c.Set("new", "v")
	clk.Advance(45 * time.Second)

	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("Expected 1 key after cleanup, got %d", stats.TotalKeys)
	}
	if stats.LastCleanup.IsZero() {
		t.Error("Expected LastCleanup to be set")
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("Expected unexpired entry to survive cleanup")
	}
}

func TestCacheRunStopsOnCancel(t *testing.T) {
	c := New[string](time.Millisecond)
	c.Set("k", "v")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for c.GetStats().LastCleanup.IsZero() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if c.GetStats().TotalKeys != 0 {
		t.Error("Expected sweep to remove expired entry")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%5)
			c.Set(key, n)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if got := c.GetStats().TotalKeys; got != 5 {
		t.Errorf("Expected 5 keys, got %d", got)
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("fx", map[string]string{"from": "USD"})
	b := GenerateKey("fx", map[string]string{"from": "USD"})
	c := GenerateKey("fx", map[string]string{"from": "EUR"})

	if a != b {
		t.Error("Expected identical params to produce identical keys")
	}
	if a == c {
		t.Error("Expected different params to produce different keys")
	}
}

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T) (*Memory[[]map[string]interface{}], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC)}
	c := New[[]map[string]interface{}](WithClock(clock.Now), WithCleanupInterval(0))
	t.Cleanup(c.Stop)
	return c, clock
}

func TestMemoryBasic(t *testing.T) {
	c, _ := newTestCache(t)

	if _, found := c.Get("cas"); found {
		t.Error("expected cache miss for non-existent key")
	}

	rows := []map[string]interface{}{{"Category": "0-19", "Hommes": "1200"}}
	c.Set("cas", rows, time.Minute)

	got, found := c.Get("cas")
	if !found {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0]["Hommes"] != "1200" {
		t.Errorf("unexpected data: %v", got)
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit 1 miss", s)
	}
}

func TestMemoryTTL(t *testing.T) {
	c, clock := newTestCache(t)
	c.Set("short", nil, 50*time.Millisecond)

	if _, found := c.Get("short"); !found {
		t.Error("expected hit immediately after set")
	}
	clock.Advance(50 * time.Millisecond)
	if _, found := c.Get("short"); found {
		t.Error("expected miss once the TTL elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed on read, Len() = %d", c.Len())
	}
}

func TestMemoryNonPositiveTTL(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("never", nil, 0)
	c.Set("never", nil, -time.Second)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestMemoryInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("a", nil, time.Minute)
	c.Set("b", nil, time.Minute)

	c.Invalidate("a")
	if _, found := c.Get("a"); found {
		t.Error("expected miss after Invalidate")
	}
	if _, found := c.Get("b"); !found {
		t.Error("Invalidate removed the wrong key")
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after InvalidateAll", c.Len())
	}
}

func TestMemorySweep(t *testing.T) {
	c, clock := newTestCache(t)
	c.Set("short", nil, time.Second)
	c.Set("long", nil, time.Hour)

	clock.Advance(time.Minute)
	c.Sweep()
	if c.Len() != 1 {
		t.Errorf("Len() = %d after Sweep, want 1", c.Len())
	}
	if _, found := c.Get("long"); !found {
		t.Error("Sweep removed a live entry")
	}
}

func TestMemoryStopIdempotent(t *testing.T) {
	c := New[int]()
	c.Stop()
	c.Stop()
}

func TestMemoryConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%3)
			for j := 0; j < 100; j++ {
				c.Set(key, nil, time.Minute)
				c.Get(key)
				if j%10 == 0 {
					c.Invalidate(key)
				}
			}
		}()
	}
	wg.Wait()
}

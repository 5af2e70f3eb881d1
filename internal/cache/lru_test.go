package cache

import (
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.now)
	c.Set("short", "x")
	c.SetWithTTL("long", "y", time.Hour)

	clock.advance(2 * time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Fatal("short should be expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatal("long should still be live")
	}

	c.Set("another", "z")
	clock.advance(2 * time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}
}

func TestLRUCacheUpdate(t *testing.T) {
	c := NewLRUCache[[]string](10, time.Minute)

	c.Update("k", func(cur []string, ok bool) ([]string, bool) {
		if ok {
			t.Fatal("unexpected existing value")
		}
		return nil, false
	})
	if _, ok := c.Get("k"); ok {
		t.Fatal("keep=false must not store")
	}

	c.Set("k", []string{"a"})
	c.Update("k", func(cur []string, ok bool) ([]string, bool) {
		return append(cur, "b"), ok
	})
	v, _ := c.Get("k")
	if len(v) != 2 || v[1] != "b" {
		t.Fatalf("unexpected value %v", v)
	}
}

func TestLRUCacheUpdateKeepsExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.now)
	c.Set("k", 1)

	for i := 0; i < 3; i++ {
		clock.advance(25 * time.Second)
		c.Update("k", func(cur int, ok bool) (int, bool) { return cur + 1, ok })
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("updates must not extend the entry's lifetime")
	}

	c.UpdateTTL("k", func(cur int, ok bool) (int, time.Duration, bool) { return 7, time.Minute, true })
	clock.advance(30 * time.Second)
	c.UpdateTTL("k", func(cur int, ok bool) (int, time.Duration, bool) { return cur + 1, 0, ok })
	clock.advance(20 * time.Second)
	if v, ok := c.Get("k"); !ok || v != 8 {
		t.Fatalf("expected 8, got %v %v", v, ok)
	}
	clock.advance(20 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should expire a minute after it was created")
	}
}

func TestExpirySetNeverEvictsBySize(t *testing.T) {
	clock := &fakeClock{t: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)}
	s := NewExpirySet().WithClock(clock.now)
	for i := 0; i < 5000; i++ {
		s.Add(fmt.Sprintf("k%d", i), clock.t.Add(time.Hour))
	}
	s.Add("short", clock.t.Add(time.Minute))
	if !s.Contains("k0") || s.Size() != 5001 {
		t.Fatalf("size = %d", s.Size())
	}

	clock.advance(2 * time.Minute)
	if s.Contains("short") {
		t.Fatal("short should be gone")
	}
	clock.advance(time.Hour)
	if n := s.CleanExpired(); n != 5000 {
		t.Fatalf("expected 5000 expired, got %d", n)
	}
}

func TestManagerSweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(nil)
	m.Register("ints", c)
	clock.advance(time.Minute)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

package governor

import (
	"testing"
	"time"
)

func TestCacheHitWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCache()
	c.now = func() time.Time { return now }

	c.Set("k", "v", 10*time.Second)

	now = now.Add(10*time.Second - time.Millisecond)
	v, ok := c.Get("k")
	if !ok || v != "v" {
		t.Fatalf("expected hit just before expiry, got ok=%v v=%v", ok, v)
	}
}

func TestCacheMissAfterTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCache()
	c.now = func() time.Time { return now }

	c.Set("k", "v", 10*time.Second)

	now = now.Add(10*time.Second + time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss just after expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be removed on read, len=%d", c.Len())
	}
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCache()
	c.now = func() time.Time { return now }

	c.Set("k", 42, 0)

	now = now.Add(1000 * time.Hour)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry with zero ttl should never expire")
	}
}

func TestCacheSetOverwrites(t *testing.T) {
	c := NewCache()
	c.Set("k", "old", time.Minute)
	c.Set("k", "new", time.Minute)

	v, ok := c.Get("k")
	if !ok || v != "new" {
		t.Fatalf("expected overwritten value, got ok=%v v=%v", ok, v)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache()
	c.Set("k", "v", time.Minute)
	c.Invalidate("k")

	if _, ok := c.Get("k"); ok {
		t.Fatal("invalidated entry should be gone")
	}
}

func TestCacheSweepRemovesOnlyExpired(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCache()
	c.now = func() time.Time { return now }

	c.Set("expired", 1, time.Second)
	c.Set("fresh", 2, time.Hour)
	c.Set("forever", 3, 0)

	now = now.Add(time.Minute)
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("expected 1 entry swept, got %d", removed)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", c.Len())
	}
}

package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/admin/astro-natal/internal/ports/cache"
)

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache().WithClock(func() time.Time { return now })

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := c.Get(ctx, "k"); err != nil || v != "v" {
		t.Fatalf("get: %q %v", v, err)
	}

	now = now.Add(time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Fatalf("expired key reported as existing")
	}
}

func TestCache_NoTTLAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	_ = c.Set(ctx, "k", "v", 0)
	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key to exist")
	}
	_ = c.Delete(ctx, "k")
	if _, err := c.Get(ctx, "k"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	ctx := context.Background()

	if _, ok, _ := store.Get(ctx, "missing"); ok {
		t.Fatal("expected miss")
	}

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("unexpected get %q %v %v", value, ok, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected deletion")
	}
}

func TestMemoryLazyExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("v"), time.Minute)

	now = now.Add(59 * time.Second)
	if _, ok, _ := store.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before ttl")
	}

	now = now.Add(2 * time.Second)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected lazy expiry after ttl")
	}
	if store.Len() != 0 {
		t.Fatal("expired entry should be dropped on read")
	}
}

func TestMemorySweep(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	_ = store.Set(ctx, "a", []byte("1"), time.Second)
	_ = store.Set(ctx, "b", []byte("2"), time.Hour)
	_ = store.Set(ctx, "c", []byte("3"), 0) // no expiry

	now = now.Add(2 * time.Second)
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept, got %d", removed)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", store.Len())
	}
}

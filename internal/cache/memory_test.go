package cache

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func TestMemoryProviderRoundTrip(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	if err := provider.Set(ctx, "incident:data:1", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, err := provider.Get(ctx, "incident:data:1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(value) != "payload" {
		t.Fatalf("unexpected value %q", value)
	}

	if _, err := provider.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func TestMemoryProviderTTLExpiry(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	if err := provider.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryProviderReturnsCopies(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	original := []byte("abc")
	if err := provider.Set(ctx, "k", original, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	original[0] = 'z'

	value, err := provider.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(value) != "abc" {
		t.Fatalf("stored value mutated: %q", value)
	}

	value[0] = 'y'
	again, _ := provider.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased storage: %q", again)
	}
}

func TestMemoryProviderKeysGlob(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	for _, key := range []string{"incident:data:1", "incident:data:2", "incident:analysis:1"} {
		if err := provider.Set(ctx, key, []byte("v"), time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}

	keys, err := provider.Keys(ctx, "incident:data:*")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "incident:data:1" || keys[1] != "incident:data:2" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	all, err := provider.Keys(ctx, "*")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all keys, got %v", all)
	}
}

func TestMemoryProviderDel(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	_ = provider.Set(ctx, "k", []byte("v"), time.Minute)
	if err := provider.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

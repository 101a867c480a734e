package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderRoundTrip(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	if _, err := provider.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := provider.Set(ctx, "k", []byte("payload"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, err := provider.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected payload %q", data)
	}

	if err := provider.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestMemoryProviderTTLExpiry(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	if err := provider.Set(ctx, "k", []byte("payload"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := provider.Get(ctx, "k"); err != nil {
		t.Fatalf("expected hit before expiry, got %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestNoopProviderNeverStores(t *testing.T) {
	provider := NoopProvider{}
	ctx := context.Background()

	if err := provider.Set(ctx, "k", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

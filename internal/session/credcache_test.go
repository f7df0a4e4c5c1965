package session

import (
	"testing"
	"time"
)

func TestCredentialCacheServesUnexpiredToken(t *testing.T) {
	now := time.Now()
	cache := NewCredentialCache().WithClock(func() time.Time { return now })

	cache.Put("token-1", now.Add(time.Minute))

	token, ok := cache.Get()
	if !ok || token != "token-1" {
		t.Fatalf("expected cached token, got %q ok=%v", token, ok)
	}
}

func TestCredentialCacheExpires(t *testing.T) {
	now := time.Now()
	cache := NewCredentialCache().WithClock(func() time.Time { return now })

	cache.Put("token-1", now.Add(time.Minute))
	now = now.Add(2 * time.Minute)

	if _, ok := cache.Get(); ok {
		t.Fatalf("expected expired token to be withheld")
	}
}

func TestCredentialCacheTreatsExactExpiryAsExpired(t *testing.T) {
	now := time.Now()
	cache := NewCredentialCache().WithClock(func() time.Time { return now })

	cache.Put("token-1", now)

	if _, ok := cache.Get(); ok {
		t.Fatalf("expected token at its expiry instant to be withheld")
	}
}

func TestCredentialCacheEmpty(t *testing.T) {
	cache := NewCredentialCache()

	if _, ok := cache.Get(); ok {
		t.Fatalf("expected empty cache to miss")
	}
}

func TestCredentialCacheInvalidate(t *testing.T) {
	cache := NewCredentialCache()
	cache.Put("token-1", time.Now().Add(time.Hour))

	cache.Invalidate()

	if _, ok := cache.Get(); ok {
		t.Fatalf("expected invalidated cache to miss")
	}
}

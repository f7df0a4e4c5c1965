package session

import (
	"sync"
	"time"
)

// CredentialCache holds the most recent access token so request pipelines
// don't round-trip to the provider on every call. It serves only unexpired
// tokens and forgets everything on Invalidate.
type CredentialCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewCredentialCache creates an empty cache.
func NewCredentialCache() *CredentialCache {
	return &CredentialCache{now: time.Now}
}

// WithClock overrides the time source, for tests.
func (c *CredentialCache) WithClock(now func() time.Time) *CredentialCache {
	c.now = now
	return c
}

// Get returns the cached token if one is present and unexpired.
func (c *CredentialCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !c.now().Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Put stores a token with its expiry.
func (c *CredentialCache) Put(token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = expiresAt
}

// Invalidate drops the cached token.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

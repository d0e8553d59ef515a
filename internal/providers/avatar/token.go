package avatar

import (
	"sync"
	"time"
)

// tokenCache holds the process-wide bearer token. A cached token is reused
// only while the clock is before its expiry; it is replaced wholesale on
// every exchange and never partially mutated, so sharing it across calls
// is safe. There is no single-flight guard: concurrent callers during a
// refresh may each perform a redundant exchange, which is idempotent and
// cheap next to video generation.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// Get returns the cached token if it has not expired at the given instant.
func (c *tokenCache) Get(now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !now.Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Set replaces the cached token as a whole value.
func (c *tokenCache) Set(token string, expiresAt time.Time) {
	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.mu.Unlock()
}

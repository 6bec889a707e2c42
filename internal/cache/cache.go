// Package cache implements the idempotency cache that deduplicates
// retried generate-intervention requests within a short TTL window.
//
// The cache is single-process and in-memory: multi-instance deployments
// do not share entries, so each process only deduplicates the retries it
// observes itself. It also does not provide single-flight semantics: two
// requests racing on the same key before the first Set may both reach the
// backend; only one response ends up cached.
package cache

import (
	"sync"
	"time"

	"github.com/quillfire/impetus/internal/domain"
)

// DefaultTTL is the idempotency window applied when none is configured.
const DefaultTTL = 15 * time.Second

type entry struct {
	response  *domain.InterventionResponse
	expiresAt time.Time
}

// Cache is a TTL-bounded map from idempotency key to finalized response.
// All operations serialize through a single mutex; nothing holds the lock
// longer than a map touch.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// Option configures the cache.
type Option func(*Cache)

// WithClock overrides the time source, used by TTL tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache with the given TTL; non-positive TTLs fall back to
// DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached response for key when present and not expired.
// The expiry comparison uses a single clock read so an entry cannot be
// valid at the check and expired at the return.
func (c *Cache) Get(key string) (*domain.InterventionResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.response, true
}

// Set stores the response under key, overwriting any prior entry and
// refreshing the expiry to now + TTL.
func (c *Cache) Set(key string, response *domain.InterventionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		response:  response,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// CleanupExpired removes every entry whose expiry has passed and returns
// how many were removed.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live plus expired-but-unswept entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

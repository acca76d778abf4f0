// Package idempotency provides a time-bounded set that records "this
// client already performed this action on this resource". It makes the
// view-increment and like/dislike endpoints safe against refresh and
// replay: within the TTL window a repeated action is suppressed while
// the request still returns current resource state.
package idempotency

import (
	"context"
	"sync"
	"time"

	"inkwell/pkg/requestcontext"
)

// Cache is a capacity-bounded in-memory marker set. Entries carry no
// payload, only an expiry. Safe for concurrent use; check-then-mark is
// a single atomic unit under one mutex.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]time.Time // key -> expiry
	ttl      time.Duration
	capacity int
}

// New creates a cache with the given entry TTL and maximum entry count.
func New(ttl time.Duration, capacity int) *Cache {
	return &Cache{
		entries:  make(map[string]time.Time),
		ttl:      ttl,
		capacity: capacity,
	}
}

// CheckAndMark atomically tests whether key is present. If absent or
// expired it inserts the key with expiry now+TTL and returns true
// (first occurrence: perform the effect). If present and unexpired it
// returns false (duplicate: skip the effect).
func (c *Cache) CheckAndMark(ctx context.Context, key string) bool {
	now := requestcontext.Now(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, ok := c.entries[key]; ok && now.Before(expiry) {
		return false
	}

	if len(c.entries) >= c.capacity {
		c.evictLocked(now)
	}

	c.entries[key] = now.Add(c.ttl)
	return true
}

// evictLocked makes room for one insertion: expired entries go first,
// then the unexpired entry closest to expiry. Dropping a still-active
// marker under capacity pressure is an accepted approximation; the
// structure favors speed over perfect accounting.
func (c *Cache) evictLocked(now time.Time) {
	var (
		earliestKey    string
		earliestExpiry time.Time
		freed          bool
	)
	for key, expiry := range c.entries {
		if !now.Before(expiry) {
			delete(c.entries, key)
			freed = true
			continue
		}
		if earliestKey == "" || expiry.Before(earliestExpiry) {
			earliestKey, earliestExpiry = key, expiry
		}
	}
	if !freed && earliestKey != "" {
		delete(c.entries, earliestKey)
	}
}

// Len reports the current entry count, expired entries included until
// the next sweep or eviction touches them.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RunSweeper periodically removes expired entries until ctx is done.
// Intended to run under an errgroup alongside the HTTP server.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *Cache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, expiry := range c.entries {
		if !now.Before(expiry) {
			delete(c.entries, key)
		}
	}
}

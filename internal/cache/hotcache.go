// Package cache provides the in-process hot cache for the redirect path.
package cache

import (
	"sync"
	"time"

	"github.com/serroba/shortkit/internal/shortener"
	"go.uber.org/zap"
)

const (
	// DefaultMaxSize bounds the number of cached redirect targets.
	DefaultMaxSize = 1000

	// DefaultTTL is how long an entry stays valid after insertion.
	DefaultTTL = time.Hour

	// DefaultSweepInterval is how often the background sweep reclaims
	// expired entries that nobody requests anymore.
	DefaultSweepInterval = 5 * time.Minute
)

// entry is a cached redirect target. Owned exclusively by HotCache and never
// persisted; always reconstructable from the durable store.
type entry struct {
	target     string
	insertedAt time.Time
	expiresAt  time.Time
	lastAccess time.Time
	hits       int64
}

// Stats is a point-in-time snapshot of cache counters. Hit counts are tracked
// for observability only; eviction is strictly least-recently-used.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HotCache is a bounded TTL cache mapping short codes to redirect targets.
// All operations are safe for concurrent use; a single mutex guards the map,
// including the background sweep.
type HotCache struct {
	mu      sync.Mutex
	entries map[string]*entry

	maxSize       int
	ttl           time.Duration
	sweepInterval time.Duration
	clock         shortener.Clock
	logger        *zap.Logger

	hits      int64
	misses    int64
	evictions int64

	stop chan struct{}
	done chan struct{}
}

// New creates a HotCache. Non-positive maxSize, ttl, or sweepInterval fall
// back to the defaults. The sweep does not run until Start is called.
func New(maxSize int, ttl, sweepInterval time.Duration, clock shortener.Clock, logger *zap.Logger) *HotCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	return &HotCache{
		entries:       make(map[string]*entry, maxSize),
		maxSize:       maxSize,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		clock:         clock,
		logger:        logger,
	}
}

// Get returns the cached target for code if present and not expired. Expired
// entries are removed and reported as absent, so TTL holds even if the sweep
// has not run yet.
func (c *HotCache) Get(code string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[code]
	if !ok {
		c.misses++
		return "", false
	}

	now := c.clock.Now()
	if !e.expiresAt.After(now) {
		delete(c.entries, code)
		c.misses++

		return "", false
	}

	e.hits++
	e.lastAccess = now
	c.hits++

	return e.target, true
}

// Set caches the target for code, overwriting any existing entry. When the
// cache is at capacity and code is not already present, the least-recently
// accessed entry is evicted first.
func (c *HotCache) Set(code, target string) {
	c.set(code, target, time.Time{})
}

// SetWithDeadline is Set with an upper bound on the entry's lifetime: the
// entry expires at the deadline if that falls before the regular TTL. Used
// for records whose own expiry lands inside the TTL window, so the cache
// never serves a target past the record's lifetime.
func (c *HotCache) SetWithDeadline(code, target string, deadline time.Time) {
	c.set(code, target, deadline)
}

func (c *HotCache) set(code, target string, deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	if _, exists := c.entries[code]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	expiresAt := now.Add(c.ttl)
	if !deadline.IsZero() && deadline.Before(expiresAt) {
		expiresAt = deadline
	}

	c.entries[code] = &entry{
		target:     target,
		insertedAt: now,
		expiresAt:  expiresAt,
		lastAccess: now,
	}
}

// Invalidate removes the entry for code. No-op if absent. Called synchronously
// by the registry on every mutation so a stale target never outlives a write.
func (c *HotCache) Invalidate(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, code)
}

// CleanupExpired removes all entries past their TTL and returns how many were
// removed. Idempotent: a second call with no intervening inserts removes
// nothing.
func (c *HotCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0

	for code, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, code)
			removed++
		}
	}

	return removed
}

// Clear removes all entries.
func (c *HotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len returns the current number of entries, expired or not.
func (c *HotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *HotCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Start launches the periodic background sweep. Safe to call once.
func (c *HotCache) Start() {
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.sweepLoop()
}

func (c *HotCache) sweepLoop() {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if removed := c.CleanupExpired(); removed > 0 {
				c.logger.Debug("hot cache sweep removed expired entries",
					zap.Int("removed", removed),
				)
			}
		}
	}
}

// Shutdown stops the background sweep and clears the cache. Safe to call even
// if Start was never invoked.
func (c *HotCache) Shutdown() error {
	if c.stop != nil {
		close(c.stop)
		<-c.done
		c.stop = nil
	}

	c.Clear()

	return nil
}

// evictOldest removes the entry with the oldest last access. Linear scan is
// fine at the bounded sizes this cache runs with. Caller must hold the lock.
func (c *HotCache) evictOldest() {
	var (
		oldestCode string
		oldest     time.Time
	)

	for code, e := range c.entries {
		if oldestCode == "" || e.lastAccess.Before(oldest) {
			oldestCode = code
			oldest = e.lastAccess
		}
	}

	if oldestCode != "" {
		delete(c.entries, oldestCode)
		c.evictions++
	}
}

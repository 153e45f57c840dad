package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/oddsmith/picks-engine/internal/config"
)

// Fetcher loads a value on cache miss. It runs outside the cache lock so
// a slow upstream call never blocks reads of unrelated keys.
type Fetcher[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value      V
	insertedAt time.Time
	expiresAt  time.Time
	hits       int64
}

// effectiveLastAccess is the eviction ordering key: insertion time pushed
// forward by a fixed bonus per hit, so frequently reused entries outlive
// a strict LRU ordering.
func (e *entry[V]) effectiveLastAccess(reuseBonus time.Duration) time.Time {
	return e.insertedAt.Add(time.Duration(e.hits) * reuseBonus)
}

// Stats is a point-in-time view of cache performance.
type Stats struct {
	Size          int           `json:"size"`
	Hits          int64         `json:"hits"`
	Misses        int64         `json:"misses"`
	Sets          int64         `json:"sets"`
	Evictions     int64         `json:"evictions"`
	StaleServes   int64         `json:"stale_serves"`
	FetchFailures int64         `json:"fetch_failures"`
	HitRate       float64       `json:"hit_rate"`
	AvgAge        time.Duration `json:"avg_age"`
}

// Cache is a capacity-bounded TTL store. Concurrent Gets for the same
// missing key share one fetch, and a failed fetch falls back to a stale
// entry when one exists.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]

	capacity   int
	reuseBonus time.Duration
	now        func() time.Time
	logger     *logrus.Logger
	group      singleflight.Group

	hits          int64
	misses        int64
	sets          int64
	evictions     int64
	staleServes   int64
	fetchFailures int64

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// New creates a cache and starts its background expiry sweeper.
func New[V any](cfg config.CacheConfig, logger *logrus.Logger) *Cache[V] {
	c := &Cache[V]{
		entries:       make(map[string]*entry[V]),
		capacity:      cfg.Capacity,
		reuseBonus:    cfg.ReuseBonus,
		sweepInterval: cfg.SweepInterval,
		now:           time.Now,
		logger:        logger,
		done:          make(chan struct{}),
	}

	if c.sweepInterval > 0 {
		go c.sweepLoop()
	}

	return c
}

// Get returns the cached value for key if present and unexpired,
// otherwise invokes fetch and stores the result with the given TTL. If
// fetch fails and an expired entry still exists, the stale value is
// returned instead of the error; the failure is counted and logged.
func (c *Cache[V]) Get(ctx context.Context, key string, ttl time.Duration, fetch Fetcher[V]) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A waiter that queued behind the first fetch finds the entry
		// already stored.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		val, ferr := fetch(ctx)
		if ferr != nil {
			c.mu.Lock()
			c.fetchFailures++
			if e, ok := c.entries[key]; ok {
				c.staleServes++
				stale := e.value
				c.mu.Unlock()
				c.logger.WithFields(logrus.Fields{
					"key":   key,
					"error": ferr.Error(),
				}).Warn("Fetch failed, serving stale cache entry")
				return stale, nil
			}
			c.mu.Unlock()
			return nil, ferr
		}

		c.Set(key, val, ttl)
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// lookup returns the fresh value for key, counting the hit on both the
// entry and the cache. Every read path that can satisfy a Get goes
// through here so the hit rate stays honest.
func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		e.hits++
		c.hits++
		return e.value, true
	}
	var zero V
	return zero, false
}

// Set unconditionally stores value under key with the given TTL,
// evicting the least valuable entry when at capacity.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictLocked()
	}

	c.entries[key] = &entry[V]{
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
	c.sets++
}

// evictLocked removes the entry with the smallest effective last-access
// time. Caller holds the lock.
func (c *Cache[V]) evictLocked() {
	var victim string
	var oldest time.Time
	first := true
	for key, e := range c.entries {
		at := e.effectiveLastAccess(c.reuseBonus)
		if first || at.Before(oldest) {
			victim = key
			oldest = at
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
		c.evictions++
		c.logger.WithField("key", victim).Debug("Evicted cache entry at capacity")
	}
}

// Invalidate removes every entry whose key contains pattern and returns
// the number removed. An exact key is a pattern that matches itself.
func (c *Cache[V]) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.WithFields(logrus.Fields{
			"pattern": pattern,
			"removed": removed,
		}).Info("Invalidated cache entries")
	}
	return removed
}

// Stats returns current cache statistics.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Size:          len(c.entries),
		Hits:          c.hits,
		Misses:        c.misses,
		Sets:          c.sets,
		Evictions:     c.evictions,
		StaleServes:   c.staleServes,
		FetchFailures: c.fetchFailures,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	if len(c.entries) > 0 {
		now := c.now()
		var sum time.Duration
		for _, e := range c.entries {
			sum += now.Sub(e.insertedAt)
		}
		stats.AvgAge = sum / time.Duration(len(c.entries))
	}
	return stats
}

// Close stops the background sweeper.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Cache[V]) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweepExpired()
		case <-c.done:
			return
		}
	}
}

// sweepExpired removes entries whose expiry has passed regardless of
// access patterns, bounding memory for keys that are never read again.
func (c *Cache[V]) sweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.WithField("removed", removed).Debug("Swept expired cache entries")
	}
	return removed
}

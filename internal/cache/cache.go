// Package cache implements FeedCache: a weighted, time-to-live cache keyed
// by feed URL that wraps a FeedFetcher, de-duplicating concurrent misses on
// the same key via golang.org/x/sync/singleflight and sharing the parsed
// result among every waiter.
package cache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/fetcherr"
	"feedhub/internal/observability/metrics"
	"feedhub/internal/observability/tracing"
)

// Fetcher is the capability FeedCache depends on. It is satisfied by
// *fetch.Fetcher; usecases and tests may substitute a double so the cache's
// own tests never need a live HTTP server.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (feed.Feed, *fetcherr.Error)
}

// Config holds the cache configuration of spec §4.2/§6.
type Config struct {
	MaxCacheSizeBytes int
	TimeToLive        time.Duration
}

// DefaultConfig returns the 10 MiB / 1h defaults from spec §4.2.
func DefaultConfig() Config {
	return Config{
		MaxCacheSizeBytes: 10 * 1024 * 1024,
		TimeToLive:        time.Hour,
	}
}

type cachedEntry struct {
	key        string
	value      feed.Feed
	weight     int
	insertedAt time.Time
}

// Cache is the FeedCache of spec §4.2.
type Cache struct {
	cfg     Config
	fetcher Fetcher
	logger  *slog.Logger

	mu          sync.Mutex
	entries     map[string]*list.Element // key -> element in lru (front = most recently used)
	lru         *list.List               // list of *cachedEntry
	totalWeight int

	group singleflight.Group
}

// New builds a Cache wrapping fetcher.
func New(cfg Config, fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Fetch implements the §4.2 lookup algorithm: a fresh cache hit returns
// immediately; otherwise the first concurrent caller for url drives the
// underlying fetch and every other concurrent caller for the same url
// awaits and shares its result.
func (c *Cache) Fetch(ctx context.Context, url string) (feed.Feed, *fetcherr.Error) {
	ctx, span := tracing.GetTracer().Start(ctx, "FeedCache.Fetch")
	defer span.End()

	if v, ok := c.lookup(url); ok {
		metrics.RecordCacheLookup("hit")
		return v, nil
	}

	result, err, shared := c.group.Do(url, func() (interface{}, error) {
		v, ferr := c.fetcher.Fetch(ctx, url)
		if ferr != nil {
			return feed.Feed{}, ferr
		}
		c.Insert(url, v)
		return v, nil
	})

	outcome := "miss"
	if shared {
		outcome = "coalesced"
	}
	if err != nil {
		metrics.RecordCacheLookup("error")
		return feed.Feed{}, err.(*fetcherr.Error)
	}
	metrics.RecordCacheLookup(outcome)
	return result.(feed.Feed), nil
}

// lookup returns the cached value for url if present and not past TTL,
// without taking the single-flight slot. Reading and touching the LRU
// position both happen under the same critical section as Insert, giving
// insert-then-lookup a happens-before edge via the mutex.
func (c *Cache) lookup(url string) (feed.Feed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[url]
	if !ok {
		return feed.Feed{}, false
	}
	ce := el.Value.(*cachedEntry)
	if time.Since(ce.insertedAt) > c.cfg.TimeToLive {
		return feed.Feed{}, false
	}
	c.lru.MoveToFront(el)
	return ce.value, true
}

// Insert replaces the entry for url unconditionally, used by Fetch on a
// successful underlying fetch and by PeriodicRefresher on every iteration.
func (c *Cache) Insert(url string, value feed.Feed) {
	weight := value.ApproximateSize()
	if weight > c.cfg.MaxCacheSizeBytes {
		weight = c.cfg.MaxCacheSizeBytes
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[url]; ok {
		ce := el.Value.(*cachedEntry)
		c.totalWeight -= ce.weight
		ce.value = value
		ce.weight = weight
		ce.insertedAt = time.Now()
		c.totalWeight += weight
		c.lru.MoveToFront(el)
	} else {
		ce := &cachedEntry{key: url, value: value, weight: weight, insertedAt: time.Now()}
		el := c.lru.PushFront(ce)
		c.entries[url] = el
		c.totalWeight += weight
	}

	c.evictLocked()
	metrics.CacheWeightBytes.Set(float64(c.totalWeight))
}

// evictLocked evicts least-recently-used entries until the total weight is
// within bound, stopping before evicting the single most-recently-used
// entry (the one just inserted) even if it alone exceeds the bound.
func (c *Cache) evictLocked() {
	for c.totalWeight > c.cfg.MaxCacheSizeBytes && c.lru.Len() > 1 {
		back := c.lru.Back()
		if back == nil {
			return
		}
		ce := back.Value.(*cachedEntry)
		c.lru.Remove(back)
		delete(c.entries, ce.key)
		c.totalWeight -= ce.weight
		metrics.CacheEvictionsTotal.Inc()
	}
}

// Keys returns a snapshot of the current cache keys, used only by the
// PeriodicRefresher.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

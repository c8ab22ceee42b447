package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pawdesk/pawdesk/plugin/similarity"
)

// Producer computes a response when the cache cannot serve one.
type Producer func(ctx context.Context) ([]byte, error)

// Config configures the response cache.
type Config struct {
	HotCapacity      int           // default: 100
	WarmCapacity     int           // default: 500
	DefaultTTL       time.Duration // default: 1 hour
	SweepInterval    time.Duration // default: 1 minute; <0 disables
	SnapshotInterval time.Duration // default: 5 minutes; <0 disables
	PromoteAfter     int           // warm accesses before promotion, default: 5
	FuzzyThreshold   float64       // default: 0.8
}

// DefaultConfig returns the default response cache configuration.
func DefaultConfig() Config {
	return Config{
		HotCapacity:      100,
		WarmCapacity:     500,
		DefaultTTL:       time.Hour,
		SweepInterval:    time.Minute,
		SnapshotInterval: 5 * time.Minute,
		PromoteAfter:     5,
		FuzzyThreshold:   0.8,
	}
}

// Stats are cumulative response cache counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	StaleServes int64 `json:"stale_serves"`
	Promotions  int64 `json:"promotions"`
	Demotions   int64 `json:"demotions"`
	HotSize     int   `json:"hot_size"`
	WarmSize    int   `json:"warm_size"`
}

// ResponseCache is a two-tier TTL cache in front of the text generator.
// Frequently re-read warm entries are promoted to the hot tier; hot-tier
// evictions are demoted to warm rather than discarded. Both tiers are
// periodically snapshotted to the snapshot store.
type ResponseCache struct {
	hot  *Tier
	warm *Tier

	cfg       Config
	snapshots SnapshotStore
	group     singleflight.Group
	now       func() time.Time

	hits        atomic.Int64
	misses      atomic.Int64
	staleServes atomic.Int64
	promotions  atomic.Int64
	demotions   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResponseCache creates a response cache, restores the latest snapshot if
// one exists, and starts the background sweep and snapshot loops.
func NewResponseCache(cfg Config, snapshots SnapshotStore) *ResponseCache {
	if cfg.HotCapacity <= 0 {
		cfg.HotCapacity = 100
	}
	if cfg.WarmCapacity <= 0 {
		cfg.WarmCapacity = 500
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = 5 * time.Minute
	}
	if cfg.PromoteAfter <= 0 {
		cfg.PromoteAfter = 5
	}
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = 0.8
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &ResponseCache{
		hot:       NewTier(cfg.HotCapacity),
		warm:      NewTier(cfg.WarmCapacity),
		cfg:       cfg,
		snapshots: snapshots,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}

	c.restoreSnapshot()

	if cfg.SweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop()
	}
	if cfg.SnapshotInterval > 0 && snapshots != nil {
		c.wg.Add(1)
		go c.snapshotLoop()
	}

	return c
}

// Close stops the background loops and writes a final snapshot.
func (c *ResponseCache) Close() {
	c.cancel()
	c.wg.Wait()

	if c.snapshots != nil {
		if err := c.writeSnapshot(); err != nil {
			slog.Warn("final cache snapshot failed", "error", err)
		}
	}
}

// Key derives the stable content hash for a question. Whitespace and case
// variations map to the same key.
func Key(question string) string {
	h := sha256.Sum256([]byte(similarity.Normalize(question)))
	return hex.EncodeToString(h[:])
}

// GetOrCompute returns the cached response for question, or invokes produce
// and caches its result with the given ttl (DefaultTTL when zero). Concurrent
// callers for the same key share one produce call. When produce fails and an
// expired entry is still resident, the stale value is served instead of the
// error.
func (c *ResponseCache) GetOrCompute(ctx context.Context, question string, ttl time.Duration, produce Producer) ([]byte, error) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}

	key := Key(question)

	if value, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return value, nil
	}
	c.misses.Add(1)

	value, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another caller may have populated the key while this
		// one waited on the flight group.
		if value, ok := c.lookup(key); ok {
			return value, nil
		}

		produced, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, question, produced, ttl)
		return produced, nil
	})
	if err != nil {
		if stale, ok := c.stale(key); ok {
			c.staleServes.Add(1)
			slog.Warn("serving stale cached response", "key", key[:12], "error", err)
			return stale, nil
		}
		return nil, err
	}

	return value.([]byte), nil
}

// lookup checks hot then warm, promoting warm entries that earned it.
func (c *ResponseCache) lookup(key string) ([]byte, bool) {
	now := c.now()

	if e, ok := c.hot.Get(key, now); ok {
		return e.Value, true
	}

	e, ok := c.warm.Get(key, now)
	if !ok {
		return nil, false
	}

	if e.AccessCount > c.cfg.PromoteAfter {
		c.promote(e)
	}
	return e.Value, true
}

// stale returns an expired-but-resident value for fail-soft serving.
func (c *ResponseCache) stale(key string) ([]byte, bool) {
	if e, ok := c.hot.GetStale(key); ok {
		return e.Value, true
	}
	if e, ok := c.warm.GetStale(key); ok {
		return e.Value, true
	}
	return nil, false
}

// store inserts a fresh entry into the hot tier.
func (c *ResponseCache) store(key, question string, value []byte, ttl time.Duration) {
	now := c.now()
	c.putHot(&Entry{
		Key:        key,
		Question:   question,
		Value:      value,
		CreatedAt:  now,
		TTL:        ttl,
		LastAccess: now,
	})

	// Keep the per-category answer fresh so regex matches can serve it.
	if category, ok := categoryOf(question); ok {
		c.putHot(&Entry{
			Key:        categoryKey(category),
			Question:   "",
			Value:      value,
			CreatedAt:  now,
			TTL:        ttl,
			LastAccess: now,
		})
	}
}

// putHot inserts into the hot tier, demoting any eviction victim to warm.
// A warm-tier victim is discarded permanently. The victim's access count is
// reset so promotion only counts reads earned while resident in warm.
func (c *ResponseCache) putHot(e *Entry) {
	victim := c.hot.Put(e)
	if victim == nil {
		return
	}
	c.demotions.Add(1)
	victim.AccessCount = 0
	c.warm.Put(victim)
}

// promote moves a warm entry into the hot tier.
func (c *ResponseCache) promote(e *Entry) {
	if _, ok := c.warm.Remove(e.Key); !ok {
		return
	}
	c.promotions.Add(1)
	c.putHot(e)
}

// Stats returns cumulative counters and tier sizes.
func (c *ResponseCache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		StaleServes: c.staleServes.Load(),
		Promotions:  c.promotions.Load(),
		Demotions:   c.demotions.Load(),
		HotSize:     c.hot.Len(),
		WarmSize:    c.warm.Len(),
	}
}

// sweepLoop periodically drops expired entries from both tiers.
func (c *ResponseCache) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			now := c.now()
			removed := c.hot.CleanupExpired(now) + c.warm.CleanupExpired(now)
			if removed > 0 {
				slog.Debug("cache sweep removed expired entries", "count", removed)
			}
		}
	}
}

// snapshotLoop periodically persists both tiers.
func (c *ResponseCache) snapshotLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeSnapshot(); err != nil {
				slog.Warn("cache snapshot failed", "error", err)
			}
		}
	}
}

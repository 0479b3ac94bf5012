package eta

import (
	"context"
	"sync"
	"time"

	"github.com/unklstewy/flightwatch/pkg/flight"
)

// latencyWindow is how many recent computations the rolling average latency
// is taken over.
const latencyWindow = 32

// cacheKey identifies one cached estimate.
type cacheKey struct {
	targetID string
	mode     flight.ETAMode
}

// cacheEntry pairs a result with its insertion time for TTL checks.
type cacheEntry struct {
	result     Result
	insertedAt time.Time
}

// valid reports whether the entry matches its key. A mismatched entry means
// the map was corrupted somehow; it is treated as a miss, never an error.
func (e cacheEntry) valid(k cacheKey) bool {
	return e.result.TargetID == k.targetID && e.result.Mode == k.mode && !e.insertedAt.IsZero()
}

// Stats is an observability snapshot of cache behavior.
type Stats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	LiveEntries int     `json:"live_entries"`

	// AvgComputeLatency is the rolling average time a cache miss spent in
	// the calculator
	AvgComputeLatency time.Duration `json:"avg_compute_latency_ns"`
}

// Cache memoizes ETA results per (target, mode) for a short TTL, amortizing
// repeated queries across a high-frequency polling cycle. Entries are evicted
// lazily on access; Sweep (or the background sweeper) bounds memory during
// long idle periods.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[cacheKey]cacheEntry

	hits   uint64
	misses uint64

	latencies [latencyWindow]time.Duration
	latCount  int
	latNext   int

	// now is swapped out by tests to step through TTL expiry
	now func() time.Time
}

// NewCache creates a cache with the given TTL. A non-positive TTL takes the
// documented 5 second default.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = flight.DefaultConfig().CacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[cacheKey]cacheEntry),
		now:     time.Now,
	}
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// GetOrCompute returns the cached result for (target, mode) when it is still
// fresh, or invokes compute, stores the fresh result, and returns it. Errors
// from compute are propagated and nothing is stored.
func (c *Cache) GetOrCompute(target Target, mode flight.ETAMode, compute func() (Result, error)) (Result, error) {
	key := cacheKey{targetID: target.ID, mode: mode}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.entries[key]; ok {
		if !entry.valid(key) {
			// Corrupted entry: evict and fall through to recompute.
			delete(c.entries, key)
		} else if now.Sub(entry.insertedAt) <= c.ttl {
			c.hits++
			return entry.result, nil
		} else {
			delete(c.entries, key)
		}
	}

	start := c.now()
	result, err := compute()
	if err != nil {
		return Result{}, err
	}
	c.misses++
	c.recordLatency(c.now().Sub(start))
	c.entries[key] = cacheEntry{result: result, insertedAt: now}
	return result, nil
}

// Invalidate drops the entries for one target in every mode. Used when a
// target's definition changes.
func (c *Cache) Invalidate(targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{targetID: targetID, mode: flight.ModeAnticipated})
	delete(c.entries, cacheKey{targetID: targetID, mode: flight.ModeEstimated})
}

// Clear drops every entry. Hit/miss counters are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}

// Sweep removes every entry older than the TTL and returns how many were
// dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for key, entry := range c.entries {
		if now.Sub(entry.insertedAt) > c.ttl || !entry.valid(key) {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// RunSweeper periodically sweeps expired entries until the context is
// cancelled. Interval defaults to the TTL when non-positive.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Stats returns an observability snapshot.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		LiveEntries: len(c.entries),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	if c.latCount > 0 {
		var sum time.Duration
		for i := 0; i < c.latCount; i++ {
			sum += c.latencies[i]
		}
		s.AvgComputeLatency = sum / time.Duration(c.latCount)
	}
	return s
}

// recordLatency pushes one computation latency into the rolling window.
// Caller must hold the lock.
func (c *Cache) recordLatency(d time.Duration) {
	c.latencies[c.latNext] = d
	c.latNext = (c.latNext + 1) % latencyWindow
	if c.latCount < latencyWindow {
		c.latCount++
	}
}

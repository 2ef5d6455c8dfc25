package engine

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/yourusername/othello/internal/bitboard"
)

// Cache constants
const (
	cacheShards = 64 // must be a power of two
)

// Key identifies a searched node. Two nodes with equal keys have the same
// negamax value.
type Key struct {
	Board bitboard.Board
	Depth int
	Side  bitboard.Side
}

// CacheStats holds cache counters
type CacheStats struct {
	Entries  int    `json:"entries"`
	Capacity int    `json:"capacity"`
	Lookups  uint64 `json:"lookups"`
	Hits     uint64 `json:"hits"`
	Stores   uint64 `json:"stores"`
	Rejected uint64 `json:"rejected"`
}

// HitRate returns the cache hit rate as a percentage
func (s CacheStats) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups) * 100
}

// Cache is a thread-safe transposition cache mapping keys to score bounds.
// Entries are spread over shards, each guarded by its own RWMutex. The
// number of entries never exceeds the capacity: once full, new keys are
// dropped, while existing keys can still be refined.
//
// A nil *Cache is valid and behaves as a disabled cache.
type Cache struct {
	shards   [cacheShards]cacheShard
	capacity int64
	size     atomic.Int64

	// Statistics
	lookups  atomic.Uint64
	hits     atomic.Uint64
	stores   atomic.Uint64
	rejected atomic.Uint64

	log zerolog.Logger
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[Key]Window
}

// NewCache creates a cache holding at most capacity entries. A negative
// capacity disables caching and returns nil.
func NewCache(capacity int, logger zerolog.Logger) *Cache {
	if capacity < 0 {
		return nil
	}
	c := &Cache{
		capacity: int64(capacity),
		log:      logger.With().Str("component", "cache").Logger(),
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[Key]Window)
	}
	return c
}

// hash computes the shard index for a key using MurmurHash3-style mixing
func hash(key Key) uint32 {
	const c1 = 0xcc9e2d51
	const c2 = 0x1b873593

	bh := key.Board.Hash()
	words := [3]uint32{
		uint32(bh), uint32(bh >> 32),
		uint32(key.Depth)<<1 | uint32(key.Side),
	}

	h := uint32(0)
	for _, k := range words {
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2

		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}

	// Finalization
	h ^= 12
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h
}

func (c *Cache) shard(key Key) *cacheShard {
	return &c.shards[hash(key)&(cacheShards-1)]
}

// Lookup returns the stored bound for key.
func (c *Cache) Lookup(key Key) (Window, bool) {
	if c == nil {
		return Window{}, false
	}
	c.lookups.Add(1)

	sh := c.shard(key)
	sh.mu.RLock()
	w, ok := sh.entries[key]
	sh.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	}
	return w, ok
}

// reserve claims one slot of capacity.
func (c *Cache) reserve() bool {
	for {
		n := c.size.Load()
		if n >= c.capacity {
			return false
		}
		if c.size.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// TryStore records a bound for key. An existing entry is narrowed by the
// new bound. It returns false when key is new and the cache is full.
func (c *Cache) TryStore(key Key, w Window) bool {
	if c == nil {
		return false
	}

	sh := c.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if old, ok := sh.entries[key]; ok {
		merged := old.Narrow(w)
		if !merged.Valid() {
			c.log.Warn().
				Stringer("stored", old).
				Stringer("new", w).
				Int("depth", key.Depth).
				Msg("disjoint bounds for key, replacing entry")
			merged = w
		}
		sh.entries[key] = merged
		c.stores.Add(1)
		return true
	}

	if !c.reserve() {
		c.rejected.Add(1)
		return false
	}
	sh.entries[key] = w
	c.stores.Add(1)
	return true
}

// Len returns the number of stored entries
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return int(c.size.Load())
}

// Capacity returns the maximum number of entries
func (c *Cache) Capacity() int {
	if c == nil {
		return 0
	}
	return int(c.capacity)
}

// Clear removes all entries and resets the statistics
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	for i := range c.shards {
		c.shards[i].mu.Lock()
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[Key]Window)
	}
	c.size.Store(0)
	c.lookups.Store(0)
	c.hits.Store(0)
	c.stores.Store(0)
	c.rejected.Store(0)
	for i := range c.shards {
		c.shards[i].mu.Unlock()
	}
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	return CacheStats{
		Entries:  c.Len(),
		Capacity: c.Capacity(),
		Lookups:  c.lookups.Load(),
		Hits:     c.hits.Load(),
		Stores:   c.stores.Load(),
		Rejected: c.rejected.Load(),
	}
}

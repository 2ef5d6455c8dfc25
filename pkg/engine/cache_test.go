package engine

import (
	"sync"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/yourusername/othello/internal/bitboard"
)

func testKey(i int) Key {
	return Key{Board: bitboard.Board{White: uint64(i), Black: uint64(i) << 32}, Depth: 5, Side: bitboard.Black}
}

func TestCacheStoreAndLookup(t *testing.T) {
	is := is.New(t)
	c := NewCache(10, zerolog.Nop())

	_, ok := c.Lookup(testKey(1))
	is.True(!ok) // empty cache misses

	is.True(c.TryStore(testKey(1), Window{Alpha: Lowest, Beta: 8}))
	w, ok := c.Lookup(testKey(1))
	is.True(ok)
	is.Equal(w, Window{Alpha: Lowest, Beta: 8})

	// a second bound on the same key narrows the entry
	is.True(c.TryStore(testKey(1), Window{Alpha: 2, Beta: Highest}))
	w, _ = c.Lookup(testKey(1))
	is.Equal(w, Window{Alpha: 2, Beta: 8})
	is.Equal(c.Len(), 1)

	// side and depth are part of the key
	k := testKey(1)
	k.Side = bitboard.White
	_, ok = c.Lookup(k)
	is.True(!ok)
	k = testKey(1)
	k.Depth = 4
	_, ok = c.Lookup(k)
	is.True(!ok)

	st := c.Stats()
	is.Equal(st.Stores, uint64(2))
	is.Equal(st.Hits, uint64(2))
}

func TestCacheCapacityCap(t *testing.T) {
	is := is.New(t)
	const capacity = 100
	const goroutines = 8
	const perGoroutine = 1000

	c := NewCache(capacity, zerolog.Nop())

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				c.TryStore(testKey(g*perGoroutine+i+1), Window{Alpha: 1, Beta: 1})
			}
		}(g)
	}
	wg.Wait()

	is.Equal(c.Len(), capacity)
	st := c.Stats()
	is.Equal(st.Rejected, uint64(goroutines*perGoroutine-capacity))

	// existing keys can still be refined at capacity
	var stored Key
	for i := 1; i <= goroutines*perGoroutine; i++ {
		if _, ok := c.Lookup(testKey(i)); ok {
			stored = testKey(i)
			break
		}
	}
	is.True(c.TryStore(stored, Window{Alpha: 1, Beta: 1}))
	is.True(!c.TryStore(testKey(-1), Window{Alpha: 1, Beta: 1})) // new key is dropped
	is.Equal(c.Len(), capacity)
}

func TestCacheDisjointBoundReplaces(t *testing.T) {
	is := is.New(t)
	c := NewCache(10, zerolog.Nop())

	c.TryStore(testKey(1), Window{Alpha: 10, Beta: 20})
	c.TryStore(testKey(1), Window{Alpha: 30, Beta: 40})

	w, ok := c.Lookup(testKey(1))
	is.True(ok)
	is.Equal(w, Window{Alpha: 30, Beta: 40})
}

func TestCacheClear(t *testing.T) {
	is := is.New(t)
	c := NewCache(10, zerolog.Nop())
	for i := 1; i <= 5; i++ {
		c.TryStore(testKey(i), FullWindow())
	}
	is.Equal(c.Len(), 5)

	c.Clear()
	is.Equal(c.Len(), 0)
	_, ok := c.Lookup(testKey(1))
	is.True(!ok)
	is.Equal(c.Stats().Stores, uint64(0))
}

func TestNilCache(t *testing.T) {
	is := is.New(t)
	c := NewCache(-1, zerolog.Nop())
	is.True(c == nil)

	is.True(!c.TryStore(testKey(1), FullWindow()))
	_, ok := c.Lookup(testKey(1))
	is.True(!ok)
	is.Equal(c.Len(), 0)
	is.Equal(c.Capacity(), 0)
	c.Clear()
	is.Equal(c.Stats(), CacheStats{})
}

func TestCacheHitRate(t *testing.T) {
	st := CacheStats{Lookups: 4, Hits: 1}
	if got := st.HitRate(); got != 25 {
		t.Errorf("HitRate = %f, want 25", got)
	}
	if got := (CacheStats{}).HitRate(); got != 0 {
		t.Errorf("empty HitRate = %f, want 0", got)
	}
}

package api

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// WorkerPool limits concurrent request processing. Fast operations
// (evaluate, moves) take one slot each; searches draw their worker
// goroutines from a shared thread budget.
type WorkerPool struct {
	fast       *semaphore.Weighted
	search     *semaphore.Weighted
	maxFast    int
	maxThreads int

	queuedFast   atomic.Int64
	queuedSearch atomic.Int64
	activeFast   atomic.Int64
	activeSearch atomic.Int64 // searches running
	busyThreads  atomic.Int64 // threads held by running searches
	totalFast    atomic.Int64
	totalSearch  atomic.Int64
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	MaxFastWorkers   int // Max concurrent fast operations (default: 100)
	MaxSearchThreads int // Search worker goroutines across all requests (default: 4)
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxFastWorkers:   100,
		MaxSearchThreads: 4,
	}
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	if config.MaxFastWorkers <= 0 {
		config.MaxFastWorkers = 100
	}
	if config.MaxSearchThreads <= 0 {
		config.MaxSearchThreads = 4
	}

	return &WorkerPool{
		fast:       semaphore.NewWeighted(int64(config.MaxFastWorkers)),
		search:     semaphore.NewWeighted(int64(config.MaxSearchThreads)),
		maxFast:    config.MaxFastWorkers,
		maxThreads: config.MaxSearchThreads,
	}
}

// AcquireFast acquires a slot for a fast operation.
// Returns an error if the context is cancelled while waiting.
func (p *WorkerPool) AcquireFast(ctx context.Context) error {
	p.queuedFast.Add(1)
	defer p.queuedFast.Add(-1)

	if err := p.fast.Acquire(ctx, 1); err != nil {
		return err
	}
	p.activeFast.Add(1)
	return nil
}

// ReleaseFast releases a fast operation slot.
func (p *WorkerPool) ReleaseFast() {
	p.activeFast.Add(-1)
	p.totalFast.Add(1)
	p.fast.Release(1)
}

// TryAcquireFast tries to acquire a fast slot without blocking.
func (p *WorkerPool) TryAcquireFast() bool {
	if !p.fast.TryAcquire(1) {
		return false
	}
	p.activeFast.Add(1)
	return true
}

// SearchThreads clamps a requested worker count to the thread budget.
func (p *WorkerPool) SearchThreads(requested int) int {
	return min(max(requested, 1), p.maxThreads)
}

// AcquireSearch reserves threads for a search and returns how many were
// granted. Release them with ReleaseSearch.
func (p *WorkerPool) AcquireSearch(ctx context.Context, threads int) (int, error) {
	n := p.SearchThreads(threads)
	p.queuedSearch.Add(1)
	defer p.queuedSearch.Add(-1)

	if err := p.search.Acquire(ctx, int64(n)); err != nil {
		return 0, err
	}
	p.activeSearch.Add(1)
	p.busyThreads.Add(int64(n))
	return n, nil
}

// TryAcquireSearch reserves threads without blocking.
func (p *WorkerPool) TryAcquireSearch(threads int) (int, bool) {
	n := p.SearchThreads(threads)
	if !p.search.TryAcquire(int64(n)) {
		return 0, false
	}
	p.activeSearch.Add(1)
	p.busyThreads.Add(int64(n))
	return n, true
}

// ReleaseSearch returns threads granted by AcquireSearch.
func (p *WorkerPool) ReleaseSearch(threads int) {
	p.activeSearch.Add(-1)
	p.busyThreads.Add(-int64(threads))
	p.totalSearch.Add(1)
	p.search.Release(int64(threads))
}

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	ActiveFast   int64 `json:"active_fast"`
	ActiveSearch int64 `json:"active_search"`
	BusyThreads  int64 `json:"busy_threads"`
	QueuedFast   int64 `json:"queued_fast"`
	QueuedSearch int64 `json:"queued_search"`
	TotalFast    int64 `json:"total_fast"`
	TotalSearch  int64 `json:"total_search"`
	MaxFast      int   `json:"max_fast"`
	MaxThreads   int   `json:"max_threads"`
}

// Stats returns current pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ActiveFast:   p.activeFast.Load(),
		ActiveSearch: p.activeSearch.Load(),
		BusyThreads:  p.busyThreads.Load(),
		QueuedFast:   p.queuedFast.Load(),
		QueuedSearch: p.queuedSearch.Load(),
		TotalFast:    p.totalFast.Load(),
		TotalSearch:  p.totalSearch.Load(),
		MaxFast:      p.maxFast,
		MaxThreads:   p.maxThreads,
	}
}

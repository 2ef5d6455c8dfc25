package api

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestWorkerPoolBasic(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers:   2,
		MaxSearchThreads: 1,
	})

	ctx := context.Background()
	if err := pool.AcquireFast(ctx); err != nil {
		t.Fatalf("Failed to acquire fast worker: %v", err)
	}

	stats := pool.Stats()
	if stats.ActiveFast != 1 {
		t.Errorf("Expected 1 active fast worker, got %d", stats.ActiveFast)
	}

	pool.ReleaseFast()
	stats = pool.Stats()
	if stats.ActiveFast != 0 {
		t.Errorf("Expected 0 active fast workers after release, got %d", stats.ActiveFast)
	}
	if stats.TotalFast != 1 {
		t.Errorf("Expected 1 total fast request, got %d", stats.TotalFast)
	}
}

func TestWorkerPoolSearchThreads(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers:   10,
		MaxSearchThreads: 4,
	})

	ctx := context.Background()

	// requests above the budget are clamped to it
	n, err := pool.AcquireSearch(ctx, 16)
	if err != nil {
		t.Fatalf("Failed to acquire search threads: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 granted threads, got %d", n)
	}
	if _, ok := pool.TryAcquireSearch(1); ok {
		t.Error("Budget exhausted, acquire should fail")
	}
	pool.ReleaseSearch(n)

	a, err := pool.AcquireSearch(ctx, 3)
	if err != nil || a != 3 {
		t.Fatalf("AcquireSearch(3) = %d, %v", a, err)
	}
	b, ok := pool.TryAcquireSearch(0)
	if !ok || b != 1 {
		t.Errorf("TryAcquireSearch(0) = %d, %v, want 1 thread", b, ok)
	}

	stats := pool.Stats()
	if stats.ActiveSearch != 2 || stats.BusyThreads != 4 {
		t.Errorf("Expected 2 searches on 4 threads, got %d on %d", stats.ActiveSearch, stats.BusyThreads)
	}

	pool.ReleaseSearch(a)
	pool.ReleaseSearch(b)
	stats = pool.Stats()
	if stats.TotalSearch != 3 || stats.BusyThreads != 0 {
		t.Errorf("Expected 3 total searches and no busy threads, got %d / %d", stats.TotalSearch, stats.BusyThreads)
	}
}

func TestWorkerPoolContextCancellation(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers:   1,
		MaxSearchThreads: 1,
	})

	ctx := context.Background()
	if err := pool.AcquireFast(ctx); err != nil {
		t.Fatalf("Failed to acquire fast worker: %v", err)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.AcquireFast(cancelCtx)
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if q := pool.Stats().QueuedFast; q != 0 {
		t.Errorf("Expected empty queue after cancellation, got %d", q)
	}

	pool.ReleaseFast()
}

func TestWorkerPoolConcurrency(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers:   5,
		MaxSearchThreads: 2,
	})

	var wg sync.WaitGroup
	ctx := context.Background()

	// Launch 10 fast workers - only 5 should run concurrently
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pool.AcquireFast(ctx); err != nil {
				t.Errorf("Failed to acquire fast worker: %v", err)
				return
			}
			if active := pool.Stats().ActiveFast; active > 5 {
				t.Errorf("Expected at most 5 active fast workers, got %d", active)
			}
			time.Sleep(10 * time.Millisecond)
			pool.ReleaseFast()
		}()
	}

	wg.Wait()

	stats := pool.Stats()
	if stats.TotalFast != 10 {
		t.Errorf("Expected 10 total fast requests, got %d", stats.TotalFast)
	}
}

func TestWorkerPoolTimeout(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers:   1,
		MaxSearchThreads: 1,
	})

	n, err := pool.AcquireSearch(context.Background(), 1)
	if err != nil {
		t.Fatalf("Failed to acquire search thread: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = pool.AcquireSearch(ctx, 1)
	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}

	pool.ReleaseSearch(n)
}

func TestWorkerPoolStats(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{})

	stats := pool.Stats()
	if stats.MaxFast != 100 {
		t.Errorf("Expected MaxFast=100, got %d", stats.MaxFast)
	}
	if stats.MaxThreads != 4 {
		t.Errorf("Expected MaxThreads=4, got %d", stats.MaxThreads)
	}
}

func TestWorkerPoolTryAcquireFast(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxFastWorkers: 2, MaxSearchThreads: 1})

	if !pool.TryAcquireFast() || !pool.TryAcquireFast() {
		t.Fatal("Expected two free fast slots")
	}
	if pool.TryAcquireFast() {
		t.Error("All fast slots taken, acquire should fail")
	}
	if stats := pool.Stats(); stats.ActiveFast != 2 {
		t.Errorf("Expected 2 active fast operations, got %d", stats.ActiveFast)
	}

	pool.ReleaseFast()
	if !pool.TryAcquireFast() {
		t.Error("Released slot should be available")
	}
	pool.ReleaseFast()
	pool.ReleaseFast()
	if stats := pool.Stats(); stats.ActiveFast != 0 || stats.TotalFast != 3 {
		t.Errorf("Expected idle pool with 3 total, got %+v", stats)
	}
}

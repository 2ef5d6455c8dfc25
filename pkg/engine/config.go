package engine

import (
	"errors"
	"fmt"
	"runtime"
)

// Search defaults
const (
	DefaultMaxDepth       = 12
	DefaultSortLevels     = 3
	DefaultSharedDepth    = 1
	DefaultMinCacheDepth  = 4
	DefaultDrawValue      = Score(-3)
	DefaultCacheCapacity  = 750000
	DefaultIntakeCapacity = 100
	DefaultJumpStart      = 1

	// MaxSearchDepth bounds any requested depth. An Othello game never
	// lasts more than 60 moves plus passes.
	MaxSearchDepth = 64
)

// Errors returned by the engine
var (
	ErrInvalidConfig      = errors.New("invalid engine config")
	ErrInconsistentWindow = errors.New("inconsistent search window")
	ErrRootPending        = errors.New("a root search is already pending")
	ErrNoRoot             = errors.New("no root search submitted")
	ErrSchedulerStalled   = errors.New("scheduler stalled with unfinished root")
	ErrCancelled          = errors.New("search cancelled")
	ErrInvalidDepth       = errors.New("invalid search depth")
)

// Config controls the search.
type Config struct {
	MaxDepth       int   `json:"max_depth"`       // Depth of root searches
	SortLevels     int   `json:"sort_levels"`     // Deepest ply below the root that orders its moves (0 = none)
	SharedDepth    int   `json:"shared_depth"`    // Plies from a job root expanded into child jobs
	MinCacheDepth  int   `json:"min_cache_depth"` // Shallowest depth that reads or writes the cache
	DrawValue      Score `json:"draw_value"`      // Score of a drawn final position
	CacheCapacity  int   `json:"cache_capacity"`  // Maximum cache entries (negative = disabled)
	Workers        int   `json:"workers"`         // Default worker count for parallel runs
	IntakeCapacity int   `json:"intake_capacity"` // Size of the bounded intake queue
	JumpStart      int   `json:"jump_start"`      // Intake jobs the coordinator runs before workers start
}

// DefaultConfig returns the default search configuration
func DefaultConfig() Config {
	return Config{
		MaxDepth:       DefaultMaxDepth,
		SortLevels:     DefaultSortLevels,
		SharedDepth:    DefaultSharedDepth,
		MinCacheDepth:  DefaultMinCacheDepth,
		DrawValue:      DefaultDrawValue,
		CacheCapacity:  DefaultCacheCapacity,
		Workers:        runtime.NumCPU(),
		IntakeCapacity: DefaultIntakeCapacity,
		JumpStart:      DefaultJumpStart,
	}
}

// sortsAt reports whether a node ply moves below the search root orders
// its moves. With SortLevels n the plies 0 through n are sorted.
func (c Config) sortsAt(ply int) bool {
	return c.SortLevels > 0 && ply <= c.SortLevels
}

// Validate checks the configuration for values the search cannot use.
func (c Config) Validate() error {
	switch {
	case c.MaxDepth < 0 || c.MaxDepth > MaxSearchDepth:
		return fmt.Errorf("%w: max depth %d out of range [0, %d]", ErrInvalidConfig, c.MaxDepth, MaxSearchDepth)
	case c.SortLevels < 0:
		return fmt.Errorf("%w: sort levels must be >= 0, got %d", ErrInvalidConfig, c.SortLevels)
	case c.SharedDepth < 0:
		return fmt.Errorf("%w: shared depth must be >= 0, got %d", ErrInvalidConfig, c.SharedDepth)
	case c.MinCacheDepth < 1:
		return fmt.Errorf("%w: min cache depth must be >= 1, got %d", ErrInvalidConfig, c.MinCacheDepth)
	case c.DrawValue <= Lowest || c.DrawValue >= Highest:
		return fmt.Errorf("%w: draw value %d must lie strictly inside the score range", ErrInvalidConfig, c.DrawValue)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	case c.IntakeCapacity < 1:
		return fmt.Errorf("%w: intake capacity must be >= 1, got %d", ErrInvalidConfig, c.IntakeCapacity)
	case c.JumpStart < 0:
		return fmt.Errorf("%w: jump start must be >= 0, got %d", ErrInvalidConfig, c.JumpStart)
	}
	return nil
}

// Package engine implements a parallel negamax search for Othello: a
// sequential alpha-beta kernel, a transposition cache with windowed bounds,
// a job tree with a completion protocol, a work-stealing scheduler and
// MTD(f) with iterative deepening on top.
package engine

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/othello/internal/bitboard"
)

// Engine bundles a configuration, an evaluator and a shared cache. Every
// search started from an Engine reads and refines the same cache.
type Engine struct {
	cfg   Config
	eval  Evaluator
	cache *Cache
	log   zerolog.Logger
}

// EngineOptions configures the engine
type EngineOptions struct {
	Config    Config          // Search configuration (zero value = DefaultConfig)
	Evaluator Evaluator       // Leaf evaluator (nil = HeuristicEvaluator)
	Logger    *zerolog.Logger // Logger (nil = global zerolog logger)
}

// NewEngine creates a new search engine with the given options
func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	e := &Engine{
		cfg:  cfg,
		eval: opts.Evaluator,
		log:  logger,
	}
	if e.eval == nil {
		e.eval = NewHeuristicEvaluator()
	}
	e.cache = NewCache(cfg.CacheCapacity, logger)
	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Cache returns the shared cache, nil when caching is disabled
func (e *Engine) Cache() *Cache {
	return e.cache
}

// ClearCache empties the shared cache
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Evaluate returns the static evaluation of b for side
func (e *Engine) Evaluate(b bitboard.Board, side bitboard.Side) Score {
	return e.eval.Evaluate(b, side)
}

// NewSearcher returns a sequential searcher sharing the engine cache
func (e *Engine) NewSearcher() *Searcher {
	return NewSearcher(e.cache, e.eval, e.cfg, e.log)
}

// NewScheduler returns a scheduler sharing the engine cache. cfg overrides
// the engine configuration for this scheduler only.
func (e *Engine) NewScheduler(cfg Config) (*Scheduler, error) {
	return NewScheduler(cfg, e.cache, e.eval, e.log)
}

// Search runs the sequential kernel on the calling goroutine with a full
// window.
func (e *Engine) Search(b bitboard.Board, side bitboard.Side, depth int) (Score, error) {
	if depth < 0 || depth > MaxSearchDepth {
		return NoScore, fmt.Errorf("search depth %d: %w", depth, ErrInvalidDepth)
	}
	return e.NewSearcher().Search(b, side, depth, FullWindow())
}

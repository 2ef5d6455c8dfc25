package engine

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/yourusername/othello/internal/bitboard"
)

// Counters are the per-searcher node counters
type Counters struct {
	Nodes     uint64 `json:"nodes"`     // Interior nodes visited
	Retrieved uint64 `json:"retrieved"` // Nodes that found a cache entry
	Leaves    uint64 `json:"leaves"`    // Evaluator calls
}

func (c *Counters) add(o Counters) {
	c.Nodes += o.Nodes
	c.Retrieved += o.Retrieved
	c.Leaves += o.Leaves
}

// Searcher runs the sequential negamax kernel. A Searcher is not safe for
// concurrent use; each worker owns one. Searchers may share a Cache.
type Searcher struct {
	cache *Cache
	eval  Evaluator
	cfg   Config
	log   zerolog.Logger

	// depth of the current search root, used to pick the kernel variant
	rootDepth int
	counters  Counters
}

// NewSearcher creates a searcher. cache may be nil.
func NewSearcher(cache *Cache, eval Evaluator, cfg Config, logger zerolog.Logger) *Searcher {
	if eval == nil {
		eval = NewHeuristicEvaluator()
	}
	return &Searcher{
		cache: cache,
		eval:  eval,
		cfg:   cfg,
		log:   logger,
	}
}

// Counters returns the counters accumulated since the last reset
func (s *Searcher) Counters() Counters {
	return s.counters
}

// ResetCounters zeroes the counters
func (s *Searcher) ResetCounters() {
	s.counters = Counters{}
}

// takeCounters returns and clears the counters.
func (s *Searcher) takeCounters() Counters {
	c := s.counters
	s.counters = Counters{}
	return c
}

// Search returns the fail-soft negamax value of b for side searched to
// depth within w. A window with Alpha > Beta anywhere in the search aborts
// it with an error wrapping ErrInconsistentWindow.
func (s *Searcher) Search(b bitboard.Board, side bitboard.Side, depth int, w Window) (score Score, err error) {
	defer recoverWindow(&score, &err)
	return s.searchFrom(depth, b, side, depth, w), nil
}

// recoverWindow turns a *WindowError panic into an error and re-panics on
// anything else.
func recoverWindow(score *Score, err *error) {
	r := recover()
	if r == nil {
		return
	}
	we, ok := r.(*WindowError)
	if !ok {
		panic(r)
	}
	*score = NoScore
	*err = fmt.Errorf("search aborted: %w", we)
}

// searchFrom searches a node that lies rootDepth-depth plies below the
// root whose depth is rootDepth.
func (s *Searcher) searchFrom(rootDepth int, b bitboard.Board, side bitboard.Side, depth int, w Window) Score {
	s.rootDepth = rootDepth
	return s.negamax(b, side, depth, w)
}

// negamax dispatches to the kernel variant for this node.
func (s *Searcher) negamax(b bitboard.Board, side bitboard.Side, depth int, w Window) Score {
	checkWindow(w, depth)

	if depth <= 0 {
		s.counters.Leaves++
		return s.eval.Evaluate(b, side)
	}

	switch {
	case s.cfg.sortsAt(s.rootDepth - depth):
		return s.sorted(b, side, depth, w)
	case depth >= s.cfg.MinCacheDepth && s.cache != nil:
		return s.cached(b, side, depth, w)
	default:
		s.counters.Nodes++
		_, boards := b.Successors(side)
		return s.expand(b, side, depth, w, boards)
	}
}

// probe consults the cache at node entry. It returns the score when the
// stored bound settles the node, otherwise the window narrowed by it.
func (s *Searcher) probe(key Key, w Window) (Window, Score, bool) {
	stored, ok := s.cache.Lookup(key)
	if !ok {
		return w, NoScore, false
	}
	s.counters.Retrieved++
	if v, done := w.Resolves(stored); done {
		return w, v, true
	}
	return w.Narrow(stored), NoScore, false
}

// cached is the cached, unsorted variant.
func (s *Searcher) cached(b bitboard.Board, side bitboard.Side, depth int, w Window) Score {
	s.counters.Nodes++
	key := Key{Board: b, Depth: depth, Side: side}

	w, v, done := s.probe(key, w)
	if done {
		return v
	}

	_, boards := b.Successors(side)
	best := s.expand(b, side, depth, w, boards)
	s.cache.TryStore(key, w.Record(best))
	return best
}

// sorted is the cached variant that orders moves by the bounds already
// stored for the resulting positions.
func (s *Searcher) sorted(b bitboard.Board, side bitboard.Side, depth int, w Window) Score {
	s.counters.Nodes++
	key := Key{Board: b, Depth: depth, Side: side}

	w, v, done := s.probe(key, w)
	if done {
		return v
	}

	moves, boards := b.Successors(side)
	orderByBounds(s.cache, moves, boards, side.Opponent(), s.rootDepth, s.cfg.MinCacheDepth)
	best := s.expand(b, side, depth, w, boards)
	s.cache.TryStore(key, w.Record(best))
	return best
}

// expand searches the children of b in the given order. A side with no
// move passes; when neither side can move the game is scored.
func (s *Searcher) expand(b bitboard.Board, side bitboard.Side, depth int, w Window, boards []bitboard.Board) Score {
	opp := side.Opponent()
	best := NoScore

	for _, child := range boards {
		v := -s.negamax(child, opp, depth-1, w.ChildWindow(best))
		if v > best {
			best = v
			if best >= w.Beta {
				break
			}
		}
	}

	if best == NoScore {
		if b.CanMove(opp) {
			return -s.negamax(b, opp, depth-1, w.Negate())
		}
		return EndScore(b, side, s.cfg.DrawValue)
	}
	return best
}

// orderByBounds sorts successors so that those most likely to cause a
// cutoff come first. For each successor the deepest stored bound between
// from and to is used; the order is ascending in (alpha>>1 + beta>>4).
func orderByBounds(c *Cache, moves []bitboard.Move, boards []bitboard.Board, side bitboard.Side, from, to int) {
	if len(boards) < 2 || c == nil {
		return
	}

	type ranked struct {
		move  bitboard.Move
		board bitboard.Board
		rank  int64
	}
	items := make([]ranked, len(boards))
	for i, child := range boards {
		w := FullWindow()
		for d := from; d >= to; d-- {
			if stored, ok := c.Lookup(Key{Board: child, Depth: d, Side: side}); ok {
				w = stored
				break
			}
		}
		items[i] = ranked{
			move:  moves[i],
			board: child,
			rank:  int64(w.Alpha>>1) + int64(w.Beta>>4),
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].rank < items[j].rank
	})

	for i, it := range items {
		moves[i] = it.move
		boards[i] = it.board
	}
}

// BestMove re-searches the root moves of b with a narrow window around a
// known score and returns the first move that achieves it. It returns
// bitboard.NoMove if score is unknown, side has no legal move or the
// re-search contradicts score.
func (s *Searcher) BestMove(b bitboard.Board, side bitboard.Side, depth int, score Score) (move bitboard.Move) {
	if score == NoScore || depth < 1 {
		return bitboard.NoMove
	}

	defer func() {
		if r := recover(); r != nil {
			we, ok := r.(*WindowError)
			if !ok {
				panic(r)
			}
			s.log.Error().Err(we).Msg("best move search aborted")
			move = bitboard.NoMove
		}
	}()

	w := Window{Alpha: score, Beta: score}
	if score > Lowest {
		w.Alpha = score - 1
	}
	if score < Highest {
		w.Beta = score + 1
	}

	moves, boards := b.Successors(side)
	if len(moves) == 0 {
		s.log.Warn().Stringer("side", side).Msg("best move requested for a side that cannot move")
		return bitboard.NoMove
	}

	s.rootDepth = depth
	best := NoScore
	bestMove := bitboard.NoMove
	for i, child := range boards {
		v := -s.negamax(child, side.Opponent(), depth-1, w.ChildWindow(best))
		if v > best {
			best = v
			bestMove = moves[i]
			if best == score {
				break
			}
			if best >= w.Beta {
				s.log.Error().
					Stringer("score", score).
					Stringer("found", best).
					Msg("failed to retrieve move, score was too low")
				return bitboard.NoMove
			}
		}
	}

	if best <= w.Alpha && best != score {
		s.log.Error().
			Stringer("score", score).
			Stringer("found", best).
			Msg("failed to retrieve move, score was too high")
		return bitboard.NoMove
	}
	return bestMove
}

package engine

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/yourusername/othello/internal/bitboard"
)

// midgame is a position reached after a few moves, white to move.
var midgame = bitboard.Board{White: 0x0000002C14000000, Black: 0x0000381028040000}

// passBoard: black on a1, white on b1. White cannot move, black can.
var passBoard = bitboard.Board{Black: 1 << 0, White: 1 << 1}

func newTestSearcher(cache *Cache, cfg Config) *Searcher {
	return NewSearcher(cache, NewHeuristicEvaluator(), cfg, zerolog.Nop())
}

func uncachedSearcher() *Searcher {
	return newTestSearcher(nil, DefaultConfig())
}

func mustSearch(t *testing.T, s *Searcher, b bitboard.Board, side bitboard.Side, depth int, w Window) Score {
	t.Helper()
	v, err := s.Search(b, side, depth, w)
	if err != nil {
		t.Fatalf("Search(depth %d, %v) failed: %v", depth, w, err)
	}
	return v
}

func TestHeuristicEvaluator(t *testing.T) {
	h := NewHeuristicEvaluator()
	if got := h.Evaluate(bitboard.Start(), bitboard.Black); got != 0 {
		t.Errorf("start evaluation = %d, want 0", got)
	}

	// a1 corner for black: 1 disc + 2 corner + 1 edge = 4; b1 for white: 1 + 1 = 2
	if got := h.Evaluate(passBoard, bitboard.Black); got != 2 {
		t.Errorf("pass board black = %d, want 2", got)
	}
	if got := h.Evaluate(passBoard, bitboard.White); got != -2 {
		t.Errorf("pass board white = %d, want -2", got)
	}
}

func TestOpeningShallow(t *testing.T) {
	s := uncachedSearcher()
	start := bitboard.Start()

	tests := []struct {
		depth int
		want  Score
	}{
		{1, 3},
		{2, 0},
		{3, 3},
		{4, -2},
		{5, 3},
	}
	for _, tt := range tests {
		if got := mustSearch(t, s, start, bitboard.Black, tt.depth, FullWindow()); got != tt.want {
			t.Errorf("depth %d = %d, want %d", tt.depth, got, tt.want)
		}
	}
}

func TestOpeningDepth6(t *testing.T) {
	is := is.New(t)
	start := bitboard.Start()

	cfg := DefaultConfig()
	cfg.SortLevels = 0
	uncached := mustSearch(t, newTestSearcher(nil, cfg), start, bitboard.Black, 6, FullWindow())
	is.Equal(uncached, Score(-2))

	// all four opening moves are symmetric, so they share one score
	e, err := NewEngine(EngineOptions{Config: cfg, Logger: nopLogger()})
	is.NoErr(err)
	ranked, err := e.RankMoves(start, bitboard.Black, 6, 0)
	is.NoErr(err)
	is.Equal(len(ranked), 4)
	for _, ms := range ranked {
		is.Equal(ms.Score, uncached)
	}

	move := newTestSearcher(nil, cfg).BestMove(start, bitboard.Black, 6, uncached)
	opening := map[string]bool{"d3": true, "c4": true, "f5": true, "e6": true}
	is.True(opening[move.String()])
}

func TestKernelVariantsAgree(t *testing.T) {
	configs := []struct {
		name          string
		sortLevels    int
		minCacheDepth int
		cached        bool
	}{
		{"uncached", 0, 64, false},
		{"sorted everywhere", 64, 1, true},
		{"default", DefaultSortLevels, DefaultMinCacheDepth, true},
		{"unsorted cached", 0, 2, true},
	}

	positions := []struct {
		board bitboard.Board
		side  bitboard.Side
	}{
		{bitboard.Start(), bitboard.Black},
		{midgame, bitboard.White},
		{midgame, bitboard.Black},
	}

	for _, p := range positions {
		for depth := 1; depth <= 5; depth++ {
			want := mustSearch(t, uncachedSearcher(), p.board, p.side, depth, FullWindow())
			for _, c := range configs {
				cfg := DefaultConfig()
				cfg.SortLevels = c.sortLevels
				cfg.MinCacheDepth = c.minCacheDepth
				var cache *Cache
				if c.cached {
					cache = NewCache(DefaultCacheCapacity, zerolog.Nop())
				}
				got := mustSearch(t, newTestSearcher(cache, cfg), p.board, p.side, depth, FullWindow())
				if got != want {
					t.Errorf("%s: %v to move, depth %d = %d, want %d", c.name, p.side, depth, got, want)
				}
			}
		}
	}
}

func TestColourSymmetry(t *testing.T) {
	windows := []Window{FullWindow(), {Alpha: -5, Beta: 5}, {Alpha: 0, Beta: 1}}
	for _, w := range windows {
		for depth := 1; depth <= 4; depth++ {
			a := mustSearch(t, uncachedSearcher(), midgame, bitboard.White, depth, w)
			b := mustSearch(t, uncachedSearcher(), midgame.Swap(), bitboard.Black, depth, w)
			if a != b {
				t.Errorf("depth %d %v: white %d, swapped black %d", depth, w, a, b)
			}
		}
	}
}

func TestNegamaxCombination(t *testing.T) {
	for depth := 1; depth <= 4; depth++ {
		root := mustSearch(t, uncachedSearcher(), midgame, bitboard.White, depth, FullWindow())

		_, boards := midgame.Successors(bitboard.White)
		best := NoScore
		for _, child := range boards {
			v := -mustSearch(t, uncachedSearcher(), child, bitboard.Black, depth-1, FullWindow())
			best = max(best, v)
		}
		if root != best {
			t.Errorf("depth %d: root %d, combined children %d", depth, root, best)
		}
	}
}

func TestWindowMonotonicity(t *testing.T) {
	const depth = 4
	exact := mustSearch(t, uncachedSearcher(), midgame, bitboard.White, depth, FullWindow())

	for a := exact - 6; a <= exact+6; a += 2 {
		for _, width := range []Score{1, 3, 8} {
			w := Window{Alpha: a, Beta: a + width}
			for _, s := range []*Searcher{uncachedSearcher(), newTestSearcher(NewCache(1000, zerolog.Nop()), DefaultConfig())} {
				got := mustSearch(t, s, midgame, bitboard.White, depth, w)
				switch {
				case exact <= w.Alpha:
					if got > w.Alpha || got < exact {
						t.Errorf("window %v: fail low %d not in [%d, %d]", w, got, exact, w.Alpha)
					}
				case exact >= w.Beta:
					if got < w.Beta || got > exact {
						t.Errorf("window %v: fail high %d not in [%d, %d]", w, got, w.Beta, exact)
					}
				default:
					if got != exact {
						t.Errorf("window %v: got %d, want exact %d", w, got, exact)
					}
				}
			}
		}
	}
}

func TestCacheTransparency(t *testing.T) {
	is := is.New(t)
	const depth = 6

	want := mustSearch(t, uncachedSearcher(), midgame, bitboard.White, depth, FullWindow())

	cache := NewCache(DefaultCacheCapacity, zerolog.Nop())
	s := newTestSearcher(cache, DefaultConfig())

	// populate with valid bounds from narrow searches first
	for _, w := range []Window{{Alpha: want - 3, Beta: want - 2}, {Alpha: want + 1, Beta: want + 4}} {
		mustSearch(t, s, midgame, bitboard.White, depth, w)
	}
	is.True(cache.Len() > 0)

	is.Equal(mustSearch(t, s, midgame, bitboard.White, depth, FullWindow()), want)
	// a second search is answered from the populated cache
	is.Equal(mustSearch(t, s, midgame, bitboard.White, depth, FullWindow()), want)
	is.True(s.Counters().Retrieved > 0)
}

func TestCacheCapacityDuringSearch(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	cfg.MinCacheDepth = 1
	cache := NewCache(50, zerolog.Nop())

	got := mustSearch(t, newTestSearcher(cache, cfg), midgame, bitboard.White, 5, FullWindow())
	is.Equal(got, mustSearch(t, uncachedSearcher(), midgame, bitboard.White, 5, FullWindow()))
	is.True(cache.Len() <= 50)
	is.True(cache.Stats().Rejected > 0)
}

func TestPassPosition(t *testing.T) {
	s := uncachedSearcher()
	// white passes, black plays c1 and the game ends in heuristic terms
	if got := mustSearch(t, s, passBoard, bitboard.White, 2, FullWindow()); got != -8 {
		t.Errorf("depth 2 = %d, want -8", got)
	}
	if got := mustSearch(t, s, passBoard, bitboard.White, 1, FullWindow()); got != -2 {
		t.Errorf("depth 1 = %d, want -2", got)
	}
}

func TestTerminalPositions(t *testing.T) {
	full := bitboard.Board{White: 0xFFFFFFFF00000000, Black: 0x00000000FFFFFFFF}
	whiteOnly := bitboard.Board{White: 0xFF}

	cfg := DefaultConfig()
	cfg.DrawValue = -7
	s := newTestSearcher(nil, cfg)

	for _, side := range []bitboard.Side{bitboard.White, bitboard.Black} {
		if got := mustSearch(t, s, full, side, 3, FullWindow()); got != -7 {
			t.Errorf("draw for %v = %d, want -7", side, got)
		}
	}

	win := mustSearch(t, s, whiteOnly, bitboard.White, 3, FullWindow())
	if win != Highest-1 {
		t.Errorf("white win = %d, want %d", win, Highest-1)
	}
	loss := mustSearch(t, s, whiteOnly, bitboard.Black, 3, FullWindow())
	if loss != Lowest+1 {
		t.Errorf("black loss = %d, want %d", loss, Lowest+1)
	}

	// win and loss scores lie outside any heuristic value
	maxHeuristic := Score(64 * 4)
	if win <= maxHeuristic || loss >= -maxHeuristic {
		t.Errorf("terminal scores %d / %d overlap the heuristic range", win, loss)
	}
}

func TestEndScoreOrdering(t *testing.T) {
	// a bigger win (fewer opposing discs) scores higher
	big := EndScore(bitboard.Board{White: 0xFFFF, Black: 0x1}, bitboard.White, 0)
	small := EndScore(bitboard.Board{White: 0xFFFF, Black: 0xFF0000}, bitboard.White, 0)
	if big <= small {
		t.Errorf("EndScore: big win %d should beat small win %d", big, small)
	}
}

func TestInconsistentWindow(t *testing.T) {
	is := is.New(t)
	v, err := uncachedSearcher().Search(bitboard.Start(), bitboard.Black, 3, Window{Alpha: 5, Beta: 4})
	is.True(errors.Is(err, ErrInconsistentWindow))
	is.Equal(v, NoScore)

	var we *WindowError
	is.True(errors.As(err, &we))
	is.Equal(we.Depth, 3)
}

func TestBestMove(t *testing.T) {
	is := is.New(t)
	s := uncachedSearcher()
	const depth = 4

	score := mustSearch(t, s, midgame, bitboard.White, depth, FullWindow())
	m := s.BestMove(midgame, bitboard.White, depth, score)
	is.True(midgame.IsLegal(m, bitboard.White))

	// the chosen move achieves the score
	child := midgame.Apply(m, bitboard.White)
	is.Equal(-mustSearch(t, s, child, bitboard.Black, depth-1, FullWindow()), score)

	is.Equal(s.BestMove(midgame, bitboard.White, depth, NoScore), bitboard.NoMove)
	is.Equal(s.BestMove(passBoard, bitboard.White, 2, -8), bitboard.NoMove) // white must pass
	is.Equal(s.BestMove(midgame, bitboard.White, depth, score+50), bitboard.NoMove)
	is.Equal(s.BestMove(midgame, bitboard.White, depth, score-50), bitboard.NoMove)
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

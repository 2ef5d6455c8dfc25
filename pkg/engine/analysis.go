package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/othello/internal/bitboard"
)

// Algorithm selects the root search driver
type Algorithm string

const (
	AlphaBeta     Algorithm = "alphabeta"
	MTDf          Algorithm = "mtdf"
	IterativeMTDf Algorithm = "iterative"
)

// ParseAlgorithm parses an algorithm name
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "alphabeta", "ab", "negamax":
		return AlphaBeta, nil
	case "mtdf", "mtd(f)":
		return MTDf, nil
	case "iterative", "id", "iterative-mtdf":
		return IterativeMTDf, nil
	}
	return "", fmt.Errorf("unknown algorithm %q", s)
}

// SearchRequest describes one root search
type SearchRequest struct {
	Board     bitboard.Board
	Side      bitboard.Side
	Depth     int            // 0 = engine MaxDepth
	Algorithm Algorithm      // Default AlphaBeta
	Window    *Window        // Root window for AlphaBeta (nil = full window)
	Guess     Score          // First guess for the MTD(f) drivers
	Workers   int            // <= 1 runs sequentially on the caller
	JumpStart int            // Intake jobs run before workers start (0 = config default, < 0 = none)
	Progress  func(Progress) // Called after each iterative MTD(f) depth
}

// SearchResult contains the result of a root search
type SearchResult struct {
	Score     Score         `json:"score"`
	BestMove  bitboard.Move `json:"-"`
	Depth     int           `json:"depth"`
	Algorithm Algorithm     `json:"algorithm"`
	Workers   int           `json:"workers"`
	Elapsed   time.Duration `json:"elapsed"`
	Stats     Stats         `json:"stats"`
}

// Analyze runs a complete root search and re-searches for the best move.
func (e *Engine) Analyze(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	cfg := e.cfg
	if req.Depth > 0 {
		cfg.MaxDepth = req.Depth
	}
	if req.Workers > cfg.Workers {
		cfg.Workers = req.Workers
	}
	jump := cfg.JumpStart
	switch {
	case req.JumpStart > 0:
		jump = req.JumpStart
	case req.JumpStart < 0:
		jump = 0
	}

	sched, err := e.NewScheduler(cfg)
	if err != nil {
		return nil, err
	}
	sched.OnProgress(req.Progress)

	algo := req.Algorithm
	if algo == "" {
		algo = AlphaBeta
	}

	var h *Handle
	switch algo {
	case AlphaBeta:
		w := FullWindow()
		if req.Window != nil {
			w = *req.Window
		}
		h, err = sched.SubmitRootSearch(req.Board, req.Side, w)
	case MTDf:
		h, err = sched.SubmitMTDf(req.Board, req.Side, req.Guess, cfg.MaxDepth)
	case IterativeMTDf:
		h, err = sched.SubmitIterativeMTDf(req.Board, req.Side, req.Guess, cfg.MaxDepth)
	default:
		return nil, fmt.Errorf("unknown algorithm %q", algo)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to submit search: %w", err)
	}

	begin := time.Now()
	if err := sched.JumpStart(jump); err != nil {
		return nil, fmt.Errorf("jump start failed: %w", err)
	}

	workers := max(req.Workers, 1)
	if workers == 1 {
		err = sched.RunSequential(ctx)
	} else {
		err = sched.RunParallel(ctx, workers)
	}
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	score, err := h.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return &SearchResult{
		Score:     score,
		BestMove:  h.BestMove(),
		Depth:     cfg.MaxDepth,
		Algorithm: algo,
		Workers:   workers,
		Elapsed:   time.Since(begin),
		Stats:     sched.Stats(),
	}, nil
}

// MoveScore is a root move with its searched score
type MoveScore struct {
	Move  bitboard.Move
	Score Score
}

// RankMoves searches every legal move of side to depth-1 and returns them
// best first. Equal scores keep board order. If n > 0 only the top n are
// returned.
func (e *Engine) RankMoves(b bitboard.Board, side bitboard.Side, depth, n int) ([]MoveScore, error) {
	if depth < 1 || depth > MaxSearchDepth {
		return nil, fmt.Errorf("rank moves depth %d: %w", depth, ErrInvalidDepth)
	}

	moves, boards := b.Successors(side)
	ranked := make([]MoveScore, len(moves))
	sr := e.NewSearcher()
	for i, child := range boards {
		v, err := sr.Search(child, side.Opponent(), depth-1, FullWindow())
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", moves[i], err)
		}
		ranked[i] = MoveScore{Move: moves[i], Score: -v}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

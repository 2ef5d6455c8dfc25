// Command searchcheck cross-checks the search drivers against each other
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/othello/internal/bitboard"
	"github.com/yourusername/othello/internal/positionid"
	"github.com/yourusername/othello/pkg/engine"
)

// perftCounts are the known leaf counts from the starting position.
var perftCounts = []uint64{1, 4, 12, 56, 244, 1396, 8200, 55092}

func main() {
	depth := flag.Int("depth", 8, "Search depth")
	workers := flag.Int("workers", 4, "Worker goroutines for the parallel checks")
	position := flag.String("position", "", "Position ID (default: starting position)")
	perftDepth := flag.Int("perft", 6, "Move generation check depth")
	flag.Parse()

	b, side := bitboard.Start(), bitboard.Black
	if *position != "" {
		var err error
		b, side, err = positionid.Parse(*position)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("=== Othello Search Check ===")
	fmt.Println()
	failed := 0

	// 1: move generation
	fmt.Println("1. Testing Move Generation...")
	for d := 1; d <= *perftDepth && d < len(perftCounts); d++ {
		n := perft(bitboard.Start(), bitboard.Black, d)
		if n == perftCounts[d] {
			fmt.Printf("   OK: perft(%d) = %d\n", d, n)
		} else {
			fmt.Printf("   FAIL: perft(%d) = %d, want %d\n", d, n, perftCounts[d])
			failed++
		}
	}
	fmt.Println()

	// 2: sequential kernel, the reference for every other check
	fmt.Println("2. Sequential Kernel...")
	nop := zerolog.Nop()
	cfg := engine.DefaultConfig()
	cfg.MaxDepth = *depth
	cfg.Workers = max(*workers, 1)
	eng, err := engine.NewEngine(engine.EngineOptions{Config: cfg, Logger: &nop})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	start := time.Now()
	want, err := eng.Search(b, side, *depth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	base := time.Since(start)
	fmt.Printf("   %s to move, depth %d: %+d (%.3fs)\n", side, *depth, want, base.Seconds())
	fmt.Println()

	// every driver, sequential and parallel, on a cold cache
	checks := []struct {
		title   string
		algo    engine.Algorithm
		workers int
	}{
		{"Sequential Alpha-Beta Scheduler", engine.AlphaBeta, 1},
		{"Parallel Alpha-Beta Scheduler", engine.AlphaBeta, *workers},
		{"Sequential MTD(f)", engine.MTDf, 1},
		{"Parallel MTD(f)", engine.MTDf, *workers},
		{"Parallel Iterative MTD(f)", engine.IterativeMTDf, *workers},
	}
	for i, c := range checks {
		fmt.Printf("%d. %s...\n", i+3, c.title)
		eng.ClearCache()
		res, err := eng.Analyze(context.Background(), engine.SearchRequest{
			Board:     b,
			Side:      side,
			Depth:     *depth,
			Algorithm: c.algo,
			Workers:   c.workers,
		})
		switch {
		case err != nil:
			fmt.Printf("   FAIL: %v\n", err)
			failed++
		case res.Score != want:
			fmt.Printf("   FAIL: score %+d, want %+d\n", res.Score, want)
			failed++
		default:
			fmt.Printf("   OK: %+d, best move %s\n", res.Score, res.BestMove)
			fmt.Printf("       %.3fs (%.2fx kernel), %d jobs, %d skipped, %d stale\n",
				res.Elapsed.Seconds(), base.Seconds()/res.Elapsed.Seconds(),
				res.Stats.JobsExecuted, res.Stats.JobsSkipped, res.Stats.StaleCompletions)
			if c.workers > 1 {
				fmt.Printf("       worker jobs %v, cv %.2f\n", res.Stats.WorkerJobs, res.Stats.Balance.CV)
			}
		}
		fmt.Println()
	}

	if failed > 0 {
		fmt.Printf("=== %d check(s) failed ===\n", failed)
		os.Exit(1)
	}
	fmt.Println("=== All checks passed ===")
}

// perft counts the positions depth plies ahead. A pass counts as a ply and
// a finished game as a leaf.
func perft(b bitboard.Board, side bitboard.Side, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	_, boards := b.Successors(side)
	if len(boards) == 0 {
		if !b.CanMove(side.Opponent()) {
			return 1
		}
		return perft(b, side.Opponent(), depth-1)
	}
	var n uint64
	for _, child := range boards {
		n += perft(child, side.Opponent(), depth-1)
	}
	return n
}

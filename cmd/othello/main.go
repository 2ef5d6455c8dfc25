// othello - a parallel Othello search engine
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/yourusername/othello/internal/bitboard"
	"github.com/yourusername/othello/internal/positionid"
	"github.com/yourusername/othello/pkg/engine"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "eval":
		cmdEval(args)
	case "moves":
		cmdMoves(args)
	case "search":
		cmdSearch(args, engine.AlphaBeta)
	case "mtdf":
		cmdSearch(args, engine.MTDf)
	case "show":
		cmdShow(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`othello - Parallel Othello Search Engine

Usage: othello <command> [options]

Commands:
  eval      Static evaluation of a position
  moves     Rank the legal moves
  search    Alpha-beta search (sequential or parallel)
  mtdf      MTD(f) search, optionally with iterative deepening
  show      Print a position as a diagram and position ID

Use "othello <command> -h" for command-specific help.

Position Format:
  -position takes a 22 character position ID with an optional side
  suffix, e.g. "AAAACBAAAAAAAAAQCAAAAA:b". Without -position the
  starting position is used. -diagram reads an 8x8 text diagram
  (rank 8 first, X = black, O = white, . = empty) from a file or "-"
  for stdin.`)
}

// positionFlags are shared by every subcommand.
type positionFlags struct {
	position *string
	short    *string
	diagram  *string
	side     *string
	logLevel *string
}

func addPositionFlags(fs *flag.FlagSet) positionFlags {
	return positionFlags{
		position: fs.String("position", "", "Position ID (default: starting position)"),
		short:    fs.String("p", "", "Position ID (short form)"),
		diagram:  fs.String("diagram", "", "Read a text diagram from this file (- for stdin)"),
		side:     fs.String("side", "", "Side to move: black or white (overrides the ID suffix)"),
		logLevel: fs.String("log-level", "warn", "Log level: debug, info, warn, error"),
	}
}

func (pf positionFlags) parse() (bitboard.Board, bitboard.Side, error) {
	b, side := bitboard.Start(), bitboard.Black

	pos := *pf.position
	if pos == "" {
		pos = *pf.short
	}
	switch {
	case pos != "":
		var err error
		b, side, err = positionid.Parse(pos)
		if err != nil {
			return b, side, fmt.Errorf("invalid position ID %q: %w", pos, err)
		}
	case *pf.diagram != "":
		var (
			data []byte
			err  error
		)
		if *pf.diagram == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(*pf.diagram)
		}
		if err != nil {
			return b, side, fmt.Errorf("failed to read diagram: %w", err)
		}
		b, err = positionid.BoardFromDiagram(string(data))
		if err != nil {
			return b, side, err
		}
	}

	if *pf.side != "" {
		s, err := bitboard.ParseSide(*pf.side)
		if err != nil {
			return b, side, err
		}
		side = s
	}
	return b, side, nil
}

// newLogger returns a console logger on stderr at the given level.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func createEngine(cfg engine.Config, logger zerolog.Logger) (*engine.Engine, error) {
	e, err := engine.NewEngine(engine.EngineOptions{Config: cfg, Logger: &logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return e, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func cmdEval(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	pf := addPositionFlags(fs)
	fs.Parse(args)

	b, side, err := pf.parse()
	if err != nil {
		fatal("%v", err)
	}
	e, err := createEngine(engine.DefaultConfig(), newLogger(*pf.logLevel))
	if err != nil {
		fatal("%v", err)
	}

	fmt.Print(positionid.Diagram(b))
	fmt.Printf("Side to move: %s\n", side)
	fmt.Printf("Discs:        black %d, white %d\n", b.Count(bitboard.Black), b.Count(bitboard.White))
	fmt.Printf("Evaluation:   %+d\n", e.Evaluate(b, side))
	moves := bitboard.MovesOf(b.LegalMoves(side))
	switch {
	case b.GameOver():
		fmt.Printf("Game over:    %+d discs\n", b.Count(side)-b.Count(side.Opponent()))
	case len(moves) == 0:
		fmt.Println("Legal moves:  none (must pass)")
	default:
		fmt.Printf("Legal moves:  %s\n", strings.Join(lo.Map(moves, func(m bitboard.Move, _ int) string {
			return m.String()
		}), " "))
	}
}

func cmdMoves(args []string) {
	fs := flag.NewFlagSet("moves", flag.ExitOnError)
	pf := addPositionFlags(fs)
	depth := fs.Int("depth", 6, "Search depth")
	numMoves := fs.Int("n", 0, "Number of moves to show (0 = all)")
	fs.Parse(args)

	b, side, err := pf.parse()
	if err != nil {
		fatal("%v", err)
	}
	e, err := createEngine(engine.DefaultConfig(), newLogger(*pf.logLevel))
	if err != nil {
		fatal("%v", err)
	}

	start := time.Now()
	ranked, err := e.RankMoves(b, side, *depth, *numMoves)
	if err != nil {
		fatal("ranking moves: %v", err)
	}
	if len(ranked) == 0 {
		fmt.Println("No legal moves (forced to pass)")
		return
	}

	fmt.Printf("Moves for %s at depth %d (%.2fs):\n", side, *depth, time.Since(start).Seconds())
	for i, ms := range ranked {
		fmt.Printf("  %2d. %-4s %+d\n", i+1, ms.Move, ms.Score)
	}
}

func cmdSearch(args []string, algo engine.Algorithm) {
	fs := flag.NewFlagSet(string(algo), flag.ExitOnError)
	pf := addPositionFlags(fs)
	def := engine.DefaultConfig()
	depth := fs.Int("depth", def.MaxDepth, "Search depth")
	workers := fs.Int("workers", 1, "Worker goroutines (1 = sequential)")
	shared := fs.Int("shared", def.SharedDepth, "Plies expanded into parallel jobs")
	sortLevels := fs.Int("sort", def.SortLevels, "Deepest ply searched with move ordering (0 = none)")
	minCache := fs.Int("min-cache-depth", def.MinCacheDepth, "Shallowest depth using the cache")
	cacheSize := fs.Int("cache", def.CacheCapacity, "Cache capacity in entries (-1 = disabled)")
	draw := fs.Int("draw", int(def.DrawValue), "Score of a drawn game")
	jump := fs.Int("jump-start", def.JumpStart, "Root expansions before workers start")
	timeout := fs.Duration("timeout", 0, "Abort the search after this long (0 = none)")
	stats := fs.Bool("stats", false, "Print scheduler statistics")
	var (
		alpha, beta *int
		guess       *int
		iterative   *bool
	)
	if algo == engine.AlphaBeta {
		alpha = fs.Int("alpha", int(engine.Lowest), "Root window lower bound")
		beta = fs.Int("beta", int(engine.Highest), "Root window upper bound")
	} else {
		guess = fs.Int("guess", 0, "First guess")
		iterative = fs.Bool("iterative", true, "Iterative deepening")
	}
	fs.Parse(args)

	b, side, err := pf.parse()
	if err != nil {
		fatal("%v", err)
	}

	cfg := def
	cfg.MaxDepth = *depth
	cfg.SharedDepth = *shared
	cfg.SortLevels = *sortLevels
	cfg.MinCacheDepth = *minCache
	cfg.CacheCapacity = *cacheSize
	cfg.DrawValue = engine.Score(*draw)
	cfg.JumpStart = *jump

	logger := newLogger(*pf.logLevel)
	e, err := createEngine(cfg, logger)
	if err != nil {
		fatal("%v", err)
	}

	req := engine.SearchRequest{
		Board:     b,
		Side:      side,
		Depth:     *depth,
		Algorithm: algo,
		Workers:   *workers,
		JumpStart: *jump,
	}
	if req.JumpStart == 0 {
		req.JumpStart = -1
	}
	if algo == engine.AlphaBeta {
		req.Window = &engine.Window{Alpha: engine.Score(*alpha), Beta: engine.Score(*beta)}
	} else {
		req.Guess = engine.Score(*guess)
		if *iterative {
			req.Algorithm = engine.IterativeMTDf
		}
		req.Progress = func(p engine.Progress) {
			fmt.Printf("  depth %2d: %+d (%d probes, %d nodes)\n", p.Depth, p.Score, p.Probes, p.Nodes)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	fmt.Print(positionid.Diagram(b))
	fmt.Printf("%s to move, %s search to depth %d with %d worker(s)\n", side, req.Algorithm, *depth, max(*workers, 1))

	res, err := e.Analyze(ctx, req)
	if err != nil {
		fatal("search failed: %v", err)
	}

	fmt.Printf("Score:     %+d\n", res.Score)
	fmt.Printf("Best move: %s\n", res.BestMove)
	fmt.Printf("Time:      %.3fs\n", res.Elapsed.Seconds())
	if *stats {
		printStats(res.Stats)
	}
}

func printStats(st engine.Stats) {
	fmt.Println("Statistics:")
	fmt.Printf("  Nodes searched:    %d\n", st.NodesSearched)
	fmt.Printf("  Nodes from cache:  %d\n", st.NodesRetrieved)
	fmt.Printf("  Leaves evaluated:  %d\n", st.LeavesEvaluated)
	fmt.Printf("  Jobs:              %d created, %d executed (%d leaf), %d skipped\n",
		st.JobsCreated, st.JobsExecuted, st.LeafJobsExecuted, st.JobsSkipped)
	fmt.Printf("  Stale completions: %d\n", st.StaleCompletions)
	if st.Probes > 0 {
		fmt.Printf("  MTD(f) probes:     %d\n", st.Probes)
	}
	fmt.Printf("  Cache:             %d/%d entries, %.1f%% hits, %d rejected\n",
		st.Cache.Entries, st.Cache.Capacity, st.Cache.HitRate(), st.Cache.Rejected)
	if len(st.WorkerJobs) > 1 {
		fmt.Printf("  Worker jobs:       %v (mean %.1f, sd %.1f, cv %.2f)\n",
			st.WorkerJobs, st.Balance.Mean, st.Balance.StdDev, st.Balance.CV)
	}
}

func cmdShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	pf := addPositionFlags(fs)
	moves := fs.String("moves", "", "Comma separated moves to play first, e.g. d3,c5")
	fs.Parse(args)

	b, side, err := pf.parse()
	if err != nil {
		fatal("%v", err)
	}

	for _, s := range lo.Compact(strings.Split(*moves, ",")) {
		m, err := bitboard.ParseMove(s)
		if err != nil {
			fatal("%v", err)
		}
		if !b.IsLegal(m, side) {
			fatal("illegal move %s for %s", m, side)
		}
		b = b.Apply(m, side)
		side = side.Opponent()
		if !b.CanMove(side) && b.CanMove(side.Opponent()) {
			side = side.Opponent() // pass
		}
	}

	fmt.Print(positionid.Diagram(b))
	fmt.Printf("Position ID: %s\n", positionid.PositionIDWithSide(b, side))
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/yourusername/othello/internal/bitboard"
)

// worker is the per-goroutine state of a scheduler worker.
type worker struct {
	id       int
	searcher *Searcher
	jobs     atomic.Uint64
}

// run tracks one submitted root until it finishes.
type run struct {
	root *job
	done chan struct{}
	once sync.Once
	ok   atomic.Bool // root completed normally
	err  error       // set once, read after done is closed
}

func (r *run) finish(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

func (r *run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Scheduler drives a job tree over a set of workers. Root searches enter a
// bounded intake queue; each worker has a FIFO of its own and steals from
// the others when it runs dry.
type Scheduler struct {
	cfg   Config
	cache *Cache
	eval  Evaluator
	log   zerolog.Logger

	intake  chan *job
	queues  []*jobQueue
	workers []*worker
	active  atomic.Int32 // workers taking part in the current run

	mu  sync.Mutex
	cur *run

	progress func(Progress)

	affinity sync.Map // Key -> worker index
	nextID   atomic.Uint64
	counters counters
}

// NewScheduler creates a scheduler. cache may be nil to search without a
// transposition cache, eval nil to use the default heuristic.
func NewScheduler(cfg Config, cache *Cache, eval Evaluator, logger zerolog.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eval == nil {
		eval = NewHeuristicEvaluator()
	}

	s := &Scheduler{
		cfg:    cfg,
		cache:  cache,
		eval:   eval,
		log:    logger.With().Str("component", "scheduler").Logger(),
		intake: make(chan *job, cfg.IntakeCapacity),
	}
	s.active.Store(1)
	s.grow(cfg.Workers)
	return s, nil
}

// grow makes sure at least n workers and queues exist. It must not be
// called while workers are running.
func (s *Scheduler) grow(n int) {
	for i := len(s.workers); i < n; i++ {
		s.workers = append(s.workers, &worker{
			id:       i,
			searcher: NewSearcher(s.cache, s.eval, s.cfg, s.log),
		})
		s.queues = append(s.queues, &jobQueue{})
	}
}

// workerCount returns the number of workers of the current run.
func (s *Scheduler) workerCount() int {
	return max(int(s.active.Load()), 1)
}

// Config returns the scheduler configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// OnProgress registers a callback invoked after every finished depth of an
// iterative MTD(f) search. It runs on a worker goroutine.
func (s *Scheduler) OnProgress(fn func(Progress)) {
	s.progress = fn
}

func (s *Scheduler) reportProgress(p Progress) {
	s.log.Debug().
		Int("depth", p.Depth).
		Stringer("score", p.Score).
		Uint64("probes", p.Probes).
		Msg("iteration complete")
	if s.progress != nil {
		s.progress(p)
	}
}

// SubmitRootSearch queues an alpha-beta search of b to the configured
// MaxDepth within w.
func (s *Scheduler) SubmitRootSearch(b bitboard.Board, side bitboard.Side, w Window) (*Handle, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("submit root search %s: %w", w, ErrInconsistentWindow)
	}
	depth := s.cfg.MaxDepth
	j := s.newJob(alphaBetaJob, nil, Key{Board: b, Depth: depth, Side: side})
	j.window = w
	j.rootDepth = depth
	return s.submit(j)
}

// SubmitMTDf queues an MTD(f) search of b to depth starting from guess.
func (s *Scheduler) SubmitMTDf(b bitboard.Board, side bitboard.Side, guess Score, depth int) (*Handle, error) {
	if depth < 0 || depth > MaxSearchDepth {
		return nil, fmt.Errorf("submit mtdf depth %d: %w", depth, ErrInvalidDepth)
	}
	return s.submit(s.newMTDfJob(nil, Key{Board: b, Depth: depth, Side: side}, guess))
}

// SubmitIterativeMTDf queues an iterative-deepening MTD(f) search of b to
// depth. Each iteration is seeded with the previous result.
func (s *Scheduler) SubmitIterativeMTDf(b bitboard.Board, side bitboard.Side, guess Score, depth int) (*Handle, error) {
	if depth < 0 || depth > MaxSearchDepth {
		return nil, fmt.Errorf("submit iterative mtdf depth %d: %w", depth, ErrInvalidDepth)
	}
	return s.submit(s.newIterativeJob(Key{Board: b, Depth: depth, Side: side}, guess))
}

func (s *Scheduler) submit(j *job) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur != nil {
		if !s.cur.finished() {
			return nil, ErrRootPending
		}
		// leftovers belong to the finished tree
		s.clearQueues()
	}

	// one root per run: the intake is empty here and never blocks
	s.intake <- j

	r := &run{root: j, done: make(chan struct{})}
	s.cur = r
	s.log.Debug().
		Uint64("job", j.id).
		Stringer("kind", j.kind).
		Int("depth", j.key.Depth).
		Msg("root submitted")
	return &Handle{s: s, r: r}, nil
}

// current returns the run of the last submitted root.
func (s *Scheduler) current() *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// JumpStart executes up to n intake jobs on the calling goroutine so that
// the first expansion is done before any worker starts. Their children land
// in the first worker's queue.
func (s *Scheduler) JumpStart(n int) error {
	r := s.current()
	if r == nil {
		return ErrNoRoot
	}
	wk := s.workers[0]
	for i := 0; i < n && !r.finished(); i++ {
		select {
		case j := <-s.intake:
			if err := s.execute(r, wk, j); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// start prepares a run with n workers and spreads the intake over their
// queues at random.
func (s *Scheduler) start(n int) (*run, error) {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return nil, ErrNoRoot
	}

	s.grow(n)
	s.active.Store(int32(n))
	for {
		select {
		case j := <-s.intake:
			s.queues[frand.Intn(n)].push(j)
		default:
			return r, nil
		}
	}
}

// RunSequential runs a single worker on the calling goroutine until the
// root finishes.
func (s *Scheduler) RunSequential(ctx context.Context) error {
	r, err := s.start(1)
	if err != nil {
		return err
	}
	begin := time.Now()
	s.log.Info().Str("mode", "sequential").Stringer("root", r.root.kind).Int("depth", r.root.key.Depth).Msg("search started")

	wk := s.workers[0]
	for !r.finished() {
		if err := ctx.Err(); err != nil {
			s.abort(r, err)
			return err
		}
		j := s.pull(wk)
		if j == nil {
			s.abort(r, ErrSchedulerStalled)
			return ErrSchedulerStalled
		}
		if err := s.execute(r, wk, j); err != nil {
			return err
		}
	}

	s.logFinish(r, begin)
	return r.runErr()
}

// RunParallel runs workers goroutines until the root finishes. The first
// worker error or the cancellation of ctx stops all of them.
func (s *Scheduler) RunParallel(ctx context.Context, workers int) error {
	if workers < 1 {
		workers = s.cfg.Workers
	}
	r, err := s.start(workers)
	if err != nil {
		return err
	}
	begin := time.Now()
	s.log.Info().Str("mode", "parallel").Int("workers", workers).Stringer("root", r.root.kind).Int("depth", r.root.key.Depth).Msg("search started")

	g, gctx := errgroup.WithContext(ctx)
	for _, wk := range s.workers[:workers] {
		wk := wk
		g.Go(func() error {
			return s.workerLoop(gctx, r, wk)
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.abort(r, ctxErr)
			return ctxErr
		}
		return err
	}

	s.logFinish(r, begin)
	return r.runErr()
}

func (s *Scheduler) workerLoop(ctx context.Context, r *run, wk *worker) error {
	for !r.finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		j := s.pull(wk)
		if j == nil {
			runtime.Gosched()
			continue
		}
		if err := s.execute(r, wk, j); err != nil {
			return err
		}
	}
	return nil
}

// pull takes the next job for wk: its own queue first, then the intake,
// then the other queues starting from a random one.
func (s *Scheduler) pull(wk *worker) *job {
	if j := s.queues[wk.id].pop(); j != nil {
		return j
	}

	select {
	case j := <-s.intake:
		return j
	default:
	}

	n := len(s.queues)
	if n < 2 {
		return nil
	}
	start := frand.Intn(n)
	for i := 0; i < n; i++ {
		q := (start + i) % n
		if q == wk.id {
			continue
		}
		if j := s.queues[q].pop(); j != nil {
			return j
		}
	}
	return nil
}

// execute runs one job on wk. A window invariant violation aborts the run
// and is returned.
func (s *Scheduler) execute(r *run, wk *worker, j *job) (err error) {
	if !j.started.CompareAndSwap(false, true) {
		return nil
	}
	if j.abandoned() {
		s.counters.jobsSkipped.Add(1)
		s.log.Debug().Uint64("job", j.id).Stringer("kind", j.kind).Msg("job skipped")
		return nil
	}

	defer func() {
		s.counters.addSearch(wk.searcher.takeCounters())
		if rec := recover(); rec != nil {
			we, ok := rec.(*WindowError)
			if !ok {
				panic(rec)
			}
			err = fmt.Errorf("job %d (%s): %w", j.id, j.kind, we)
			s.log.Error().Err(err).Msg("search aborted")
			s.abort(r, err)
		}
	}()

	j.worker = wk.id
	s.counters.jobsExecuted.Add(1)
	wk.jobs.Add(1)

	switch j.kind {
	case alphaBetaJob:
		s.runAlphaBeta(wk, j)
	case mtdfJob:
		s.runMTDf(j)
	case iterativeJob:
		s.runIterative(j)
	}
	return nil
}

// finishRoot is called once the root job of the current run completes.
func (s *Scheduler) finishRoot(j *job) {
	r := s.current()
	if r == nil || r.root != j {
		return
	}
	r.ok.Store(true)
	r.finish(nil)
}

// abort cancels the root of r and records why.
func (s *Scheduler) abort(r *run, err error) {
	s.cancel(r.root)
	r.finish(err)
}

// runErr is the error a Run method reports for a finished run. An explicit
// Cancel is not an error for the runner.
func (r *run) runErr() error {
	if r.ok.Load() || errors.Is(r.err, ErrCancelled) {
		return nil
	}
	return r.err
}

// Cancel stops the current search. Queued jobs are skipped and running jobs
// finish without reporting.
func (s *Scheduler) Cancel() {
	if r := s.current(); r != nil && !r.finished() {
		s.abort(r, ErrCancelled)
	}
}

// Reset cancels any pending search and clears the queues and counters.
// The cache is kept.
func (s *Scheduler) Reset() {
	s.Cancel()

	s.mu.Lock()
	s.cur = nil
	s.clearQueues()
	s.mu.Unlock()

	s.affinity.Range(func(k, _ any) bool {
		s.affinity.Delete(k)
		return true
	})
	s.counters.reset()
	for _, wk := range s.workers {
		wk.jobs.Store(0)
		wk.searcher.ResetCounters()
	}
}

// clearQueues drops every queued job. Called with s.mu held.
func (s *Scheduler) clearQueues() {
	for {
		select {
		case <-s.intake:
			continue
		default:
		}
		break
	}
	for _, q := range s.queues {
		q.clear()
	}
}

// Stats returns a snapshot of the counters
func (s *Scheduler) Stats() Stats {
	st := Stats{
		NodesSearched:    s.counters.nodesSearched.Load(),
		NodesRetrieved:   s.counters.nodesRetrieved.Load(),
		LeavesEvaluated:  s.counters.leavesEvaluated.Load(),
		JobsCreated:      s.counters.jobsCreated.Load(),
		JobsExecuted:     s.counters.jobsExecuted.Load(),
		LeafJobsExecuted: s.counters.leafJobsExecuted.Load(),
		JobsSkipped:      s.counters.jobsSkipped.Load(),
		StaleCompletions: s.counters.staleCompletions.Load(),
		Probes:           s.counters.probes.Load(),
		Cache:            s.cache.Stats(),
	}
	st.WorkerJobs = make([]uint64, len(s.workers))
	for i, wk := range s.workers {
		st.WorkerJobs[i] = wk.jobs.Load()
	}
	st.Balance = summarizeLoad(st.WorkerJobs[:min(int(s.active.Load()), len(st.WorkerJobs))])
	return st
}

func (s *Scheduler) logFinish(r *run, begin time.Time) {
	st := s.Stats()
	s.log.Info().
		Stringer("score", r.root.result).
		Dur("elapsed", time.Since(begin)).
		Uint64("nodes", st.NodesSearched).
		Uint64("jobs", st.JobsExecuted).
		Uint64("skipped", st.JobsSkipped).
		Uint64("stale", st.StaleCompletions).
		Float64("load_cv", st.Balance.CV).
		Msg("search finished")
}

// Handle refers to a submitted root search.
type Handle struct {
	s *Scheduler
	r *run
}

// Done reports whether the search completed with a score.
func (h *Handle) Done() bool {
	return h.r.ok.Load()
}

// Score returns the root score, or NoScore until the search is done.
func (h *Handle) Score() Score {
	if !h.Done() {
		return NoScore
	}
	return h.r.root.result
}

// Depth returns the requested search depth.
func (h *Handle) Depth() int {
	return h.r.root.key.Depth
}

// Wait blocks until the search finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Score, error) {
	select {
	case <-h.r.done:
	case <-ctx.Done():
		return NoScore, ctx.Err()
	}
	if h.Done() {
		return h.r.root.result, nil
	}
	if h.r.err != nil {
		return NoScore, h.r.err
	}
	return NoScore, ErrCancelled
}

// BestMove re-searches the root with a narrow window around the score and
// returns the move that achieves it, or bitboard.NoMove.
func (h *Handle) BestMove() bitboard.Move {
	if !h.Done() {
		return bitboard.NoMove
	}
	s := h.s
	root := h.r.root
	sr := NewSearcher(s.cache, s.eval, s.cfg, s.log)
	m := sr.BestMove(root.key.Board, root.key.Side, root.key.Depth, root.result)
	s.counters.addSearch(sr.takeCounters())
	return m
}

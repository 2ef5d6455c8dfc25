package engine

import (
	"github.com/yourusername/othello/internal/bitboard"
)

// usesCache reports whether nodes at depth in a tree rooted at rootDepth
// read and write the cache. It matches the kernel's variant selection.
func (s *Scheduler) usesCache(rootDepth, depth int) bool {
	if s.cache == nil || depth <= 0 {
		return false
	}
	return s.cfg.sortsAt(rootDepth-depth) || depth >= s.cfg.MinCacheDepth
}

// newAlphaBetaJob creates a job searching key within w. When the cache
// already settles the node no job is created and the score is returned
// with resolved set.
func (s *Scheduler) newAlphaBetaJob(parent *job, key Key, w Window, rootDepth int) (j *job, score Score, resolved bool) {
	if s.usesCache(rootDepth, key.Depth) {
		if stored, ok := s.cache.Lookup(key); ok {
			s.counters.nodesRetrieved.Add(1)
			if v, done := w.Resolves(stored); done {
				return nil, v, true
			}
			w = w.Narrow(stored)
		}
	}

	j = s.newJob(alphaBetaJob, parent, key)
	j.window = w
	j.rootDepth = rootDepth
	return j, NoScore, false
}

// runAlphaBeta executes an alpha-beta job: it either searches the node with
// the local kernel or expands it into child jobs.
func (s *Scheduler) runAlphaBeta(wk *worker, j *job) {
	w := s.retighten(j)

	resolved, v := false, NoScore
	if s.usesCache(j.rootDepth, j.key.Depth) {
		if stored, ok := s.cache.Lookup(j.key); ok {
			s.counters.nodesRetrieved.Add(1)
			if v, resolved = w.Resolves(stored); !resolved {
				w = w.Narrow(stored)
			}
		}
	}

	// the result is recorded against j.window, so it must be the window
	// the score was obtained with
	j.mu.Lock()
	j.window = w
	j.mu.Unlock()

	if resolved {
		s.complete(j, v)
		return
	}
	checkWindow(w, j.key.Depth)

	ply := j.rootDepth - j.key.Depth
	if ply >= s.cfg.SharedDepth || j.key.Depth == 0 {
		s.counters.leafJobsExecuted.Add(1)
		score := wk.searcher.searchFrom(j.rootDepth, j.key.Board, j.key.Side, j.key.Depth, w)
		s.complete(j, score)
		return
	}

	s.spawnChildren(wk, j)
}

// retighten narrows the window of j using what its parent has learned
// since j was created. The narrowed window is used only if it is not empty.
func (s *Scheduler) retighten(j *job) Window {
	j.mu.Lock()
	w := j.window
	j.mu.Unlock()

	p := j.parent
	if p == nil {
		return w
	}

	var tightened Window
	p.mu.Lock()
	switch p.kind {
	case alphaBetaJob:
		tightened = Window{Alpha: w.Alpha, Beta: min(w.Beta, -max(p.window.Alpha, p.best))}
	default:
		tightened = w.Narrow(p.bounds)
	}
	p.mu.Unlock()

	if tightened.Alpha < tightened.Beta {
		return tightened
	}
	return w
}

// spawnChildren creates one child job per legal move, a single pass child
// when only the opponent can move, or completes j when the game is over.
// Children settled by the cache are merged at once and never queued.
func (s *Scheduler) spawnChildren(wk *worker, j *job) {
	b, side, depth := j.key.Board, j.key.Side, j.key.Depth
	opp := side.Opponent()

	moves, boards := b.Successors(side)
	if len(boards) == 0 {
		if !b.CanMove(opp) {
			s.complete(j, EndScore(b, side, s.cfg.DrawValue))
			return
		}
		// pass: same position, opponent to move
		boards = []bitboard.Board{b}
	} else {
		orderByBounds(s.cache, moves, boards, opp, j.rootDepth, s.cfg.MinCacheDepth)
	}

	var ready []*job
	j.mu.Lock()
	for _, child := range boards {
		key := Key{Board: child, Depth: depth - 1, Side: opp}
		c, v, resolved := s.newAlphaBetaJob(j, key, j.window.ChildWindow(j.best), j.rootDepth)
		if resolved {
			if -v > j.best {
				j.best = -v
			}
			if j.best >= j.window.Beta {
				break
			}
			continue
		}
		j.children = append(j.children, c)
		ready = append(ready, c)
	}

	done := j.best >= j.window.Beta || len(j.children) == 0
	if done {
		done = j.finishLocked(j.best)
	}
	j.mu.Unlock()

	if done {
		s.afterComplete(j)
		return
	}
	s.queues[wk.id].push(ready...)
}

// alphaBetaChildDone applies the negamax combine for one finished child.
func (s *Scheduler) alphaBetaChildDone(p, c *job) {
	p.mu.Lock()
	if p.complete.Load() || p.cancelled.Load() {
		p.mu.Unlock()
		s.stale(c, "parent already complete or cancelled")
		return
	}

	p.removeChildLocked(c)
	if v := -c.result; v > p.best {
		p.best = v
	}

	done := false
	if p.best >= p.window.Beta || len(p.children) == 0 {
		done = p.finishLocked(p.best)
	}
	p.mu.Unlock()

	if done {
		s.afterComplete(p)
	}
}

package engine

import (
	"lukechampine.com/frand"
)

// Progress reports a finished iteration of an iterative MTD(f) search.
type Progress struct {
	Depth  int    `json:"depth"`
	Score  Score  `json:"score"`
	Probes uint64 `json:"probes"`
	Nodes  uint64 `json:"nodes"`
}

// probeWindow returns the null window tested next: just above the guess
// when the guess equals the lower bound, just below it otherwise.
func probeWindow(guess Score, bounds Window) Window {
	var w Window
	if guess == bounds.Alpha {
		w = Window{Alpha: guess, Beta: guess + 1}
	} else {
		w = Window{Alpha: guess - 1, Beta: guess}
	}
	return w.Narrow(bounds)
}

// clampGuess keeps an initial guess inside the real score range.
func clampGuess(g Score) Score {
	return min(max(g, Lowest), Highest)
}

func (s *Scheduler) newMTDfJob(parent *job, key Key, guess Score) *job {
	j := s.newJob(mtdfJob, parent, key)
	j.bounds = FullWindow()
	j.guess = clampGuess(guess)
	return j
}

func (s *Scheduler) newIterativeJob(key Key, guess Score) *job {
	j := s.newJob(iterativeJob, nil, key)
	j.guess = clampGuess(guess)

	start := max(s.cfg.SharedDepth, 1)
	if start&1 != key.Depth&1 {
		start++
	}
	j.nextDepth = min(start, key.Depth)
	return j
}

// affinityFor returns the worker that last ran a probe of key, or a random
// worker.
func (s *Scheduler) affinityFor(key Key) int {
	if v, ok := s.affinity.Load(key); ok {
		if w := v.(int); w >= 0 && w < s.workerCount() {
			return w
		}
	}
	return frand.Intn(s.workerCount())
}

func (s *Scheduler) runMTDf(j *job) {
	s.nextProbe(j)
}

// nextProbe issues null-window probes until one needs a child job or the
// bounds meet. Probes settled by the cache are applied in place.
func (s *Scheduler) nextProbe(j *job) {
	for {
		j.mu.Lock()
		if j.complete.Load() || j.cancelled.Load() {
			j.mu.Unlock()
			return
		}

		if j.bounds.Alpha >= j.bounds.Beta {
			done := j.finishLocked(j.guess)
			j.mu.Unlock()
			if done {
				s.afterComplete(j)
			}
			return
		}

		probe := probeWindow(j.guess, j.bounds)
		s.counters.probes.Add(1)

		c, v, resolved := s.newAlphaBetaJob(j, j.key, probe, j.key.Depth)
		if resolved {
			j.applyProbeLocked(probe, v)
			j.mu.Unlock()
			continue
		}

		j.probe = probe
		j.children = append(j.children[:0], c)
		j.mu.Unlock()

		s.queues[s.affinityFor(j.key)].push(c)
		return
	}
}

// applyProbeLocked moves one bound of j to the probe result r.
func (j *job) applyProbeLocked(probe Window, r Score) {
	if r < probe.Beta {
		j.bounds.Beta = r
	} else {
		j.bounds.Alpha = r
	}
	j.guess = r
}

func (s *Scheduler) mtdfChildDone(p, c *job) {
	s.affinity.Store(c.key, c.worker)

	p.mu.Lock()
	if p.complete.Load() || p.cancelled.Load() {
		p.mu.Unlock()
		s.stale(c, "parent already complete or cancelled")
		return
	}
	p.removeChildLocked(c)
	p.applyProbeLocked(p.probe, c.result)
	p.mu.Unlock()

	s.nextProbe(p)
}

func (s *Scheduler) runIterative(j *job) {
	s.spawnIteration(j)
}

// spawnIteration queues an MTD(f) search at the next depth, seeded with the
// last result.
func (s *Scheduler) spawnIteration(j *job) {
	j.mu.Lock()
	if j.complete.Load() || j.cancelled.Load() {
		j.mu.Unlock()
		return
	}
	key := Key{Board: j.key.Board, Depth: j.nextDepth, Side: j.key.Side}
	c := s.newMTDfJob(j, key, j.guess)
	j.children = append(j.children[:0], c)
	j.mu.Unlock()

	s.queues[frand.Intn(s.workerCount())].push(c)
}

func (s *Scheduler) iterativeChildDone(p, c *job) {
	p.mu.Lock()
	if p.complete.Load() || p.cancelled.Load() {
		p.mu.Unlock()
		s.stale(c, "parent already complete or cancelled")
		return
	}
	p.removeChildLocked(c)
	p.guess = c.result

	done := false
	if c.key.Depth >= p.key.Depth {
		done = p.finishLocked(c.result)
	} else {
		p.nextDepth = min(p.nextDepth+2, p.key.Depth)
	}
	p.mu.Unlock()

	s.reportProgress(Progress{
		Depth:  c.key.Depth,
		Score:  c.result,
		Probes: s.counters.probes.Load(),
		Nodes:  s.counters.nodesSearched.Load(),
	})

	if done {
		s.afterComplete(p)
		return
	}
	s.spawnIteration(p)
}

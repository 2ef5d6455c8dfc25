package engine

import (
	"sync"
	"sync/atomic"
)

// jobKind selects the behaviour of a job. The set is closed.
type jobKind uint8

const (
	alphaBetaJob jobKind = iota
	mtdfJob
	iterativeJob
)

func (k jobKind) String() string {
	switch k {
	case alphaBetaJob:
		return "alphabeta"
	case mtdfJob:
		return "mtdf"
	case iterativeJob:
		return "iterative"
	}
	return "unknown"
}

// job is a node of the job tree. A job owns its pending children; the
// parent pointer is only followed upward to report a result or to check
// whether the work is still wanted.
//
// Lock order: a goroutine holds at most one job mutex at a time.
type job struct {
	kind   jobKind
	id     uint64
	parent *job
	key    Key

	started   atomic.Bool
	complete  atomic.Bool
	cancelled atomic.Bool

	// worker that executed the job, -1 before execution
	worker int

	mu       sync.Mutex
	children []*job // pending children
	result   Score  // final score, valid once complete

	// alpha-beta
	window    Window
	best      Score
	rootDepth int // depth of the alpha-beta tree root this job belongs to

	// mtdf and iterative
	bounds    Window // proven [lower, upper] bounds of the value
	probe     Window // window of the pending probe
	guess     Score
	nextDepth int
}

// finishLocked marks j complete with score. It must be called with j.mu
// held and reports false if j was already complete.
func (j *job) finishLocked(score Score) bool {
	if j.complete.Load() {
		return false
	}
	j.result = score
	j.complete.Store(true)
	return true
}

// removeChildLocked drops c from the pending list.
func (j *job) removeChildLocked(c *job) {
	for i, p := range j.children {
		if p == c {
			last := len(j.children) - 1
			j.children[i] = j.children[last]
			j.children[last] = nil
			j.children = j.children[:last]
			return
		}
	}
}

// takeChildren detaches and returns the pending children.
func (j *job) takeChildren() []*job {
	j.mu.Lock()
	kids := j.children
	j.children = nil
	j.mu.Unlock()
	return kids
}

// abandoned reports whether j or any ancestor is complete or cancelled.
// The check is advisory: a job that passes it may still become unwanted.
func (j *job) abandoned() bool {
	for p := j; p != nil; p = p.parent {
		if p.complete.Load() || p.cancelled.Load() {
			return true
		}
	}
	return false
}

// newJob allocates a job and counts it.
func (s *Scheduler) newJob(kind jobKind, parent *job, key Key) *job {
	s.counters.jobsCreated.Add(1)
	return &job{
		kind:   kind,
		id:     s.nextID.Add(1),
		parent: parent,
		key:    key,
		worker: -1,
		result: NoScore,
		best:   NoScore,
	}
}

// complete finishes j with score. A second completion is counted as stale
// and otherwise ignored.
func (s *Scheduler) complete(j *job, score Score) {
	j.mu.Lock()
	ok := j.finishLocked(score)
	j.mu.Unlock()

	if !ok {
		s.stale(j, "job already complete")
		return
	}
	s.afterComplete(j)
}

// afterComplete runs the side effects of a completion. It is called
// exactly once per job, without any job lock held.
// A cancelled job may have lost children to the cancellation, so its
// result is not a proven bound and is never stored.
func (s *Scheduler) afterComplete(j *job) {
	if j.kind == alphaBetaJob && !j.cancelled.Load() && s.usesCache(j.rootDepth, j.key.Depth) {
		s.cache.TryStore(j.key, j.window.Record(j.result))
	}

	for _, c := range j.takeChildren() {
		s.cancel(c)
	}

	if j.cancelled.Load() {
		s.stale(j, "completed after cancellation")
		return
	}

	if j.parent == nil {
		s.finishRoot(j)
		return
	}
	s.childCompleted(j.parent, j)
}

// childCompleted merges the result of child into parent.
func (s *Scheduler) childCompleted(parent, child *job) {
	switch parent.kind {
	case alphaBetaJob:
		s.alphaBetaChildDone(parent, child)
	case mtdfJob:
		s.mtdfChildDone(parent, child)
	case iterativeJob:
		s.iterativeChildDone(parent, child)
	}
}

// cancel marks j and its pending descendants cancelled. Cancellation is
// lazy: queued jobs are skipped when pulled, running jobs finish and their
// results are discarded.
func (s *Scheduler) cancel(j *job) {
	if j.cancelled.Swap(true) {
		return
	}
	for _, c := range j.takeChildren() {
		s.cancel(c)
	}
}

// stale records a completion that could not be merged.
func (s *Scheduler) stale(j *job, reason string) {
	s.counters.staleCompletions.Add(1)
	s.log.Debug().
		Uint64("job", j.id).
		Stringer("kind", j.kind).
		Int("depth", j.key.Depth).
		Msg(reason)
}

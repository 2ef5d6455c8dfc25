package engine

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// counters are owned by a Scheduler and shared by its workers.
type counters struct {
	nodesSearched    atomic.Uint64
	nodesRetrieved   atomic.Uint64
	leavesEvaluated  atomic.Uint64
	jobsCreated      atomic.Uint64
	jobsExecuted     atomic.Uint64
	leafJobsExecuted atomic.Uint64
	jobsSkipped      atomic.Uint64
	staleCompletions atomic.Uint64
	probes           atomic.Uint64
}

func (c *counters) addSearch(o Counters) {
	if o.Nodes != 0 {
		c.nodesSearched.Add(o.Nodes)
	}
	if o.Retrieved != 0 {
		c.nodesRetrieved.Add(o.Retrieved)
	}
	if o.Leaves != 0 {
		c.leavesEvaluated.Add(o.Leaves)
	}
}

func (c *counters) reset() {
	c.nodesSearched.Store(0)
	c.nodesRetrieved.Store(0)
	c.leavesEvaluated.Store(0)
	c.jobsCreated.Store(0)
	c.jobsExecuted.Store(0)
	c.leafJobsExecuted.Store(0)
	c.jobsSkipped.Store(0)
	c.staleCompletions.Store(0)
	c.probes.Store(0)
}

// Stats is a snapshot of scheduler counters
type Stats struct {
	NodesSearched    uint64 `json:"nodes_searched"`
	NodesRetrieved   uint64 `json:"nodes_retrieved"`
	LeavesEvaluated  uint64 `json:"leaves_evaluated"`
	JobsCreated      uint64 `json:"jobs_created"`
	JobsExecuted     uint64 `json:"jobs_executed"`
	LeafJobsExecuted uint64 `json:"leaf_jobs_executed"`
	JobsSkipped      uint64 `json:"jobs_skipped"`
	StaleCompletions uint64 `json:"stale_completions"`
	Probes           uint64 `json:"probes"`

	WorkerJobs []uint64    `json:"worker_jobs"`
	Balance    LoadBalance `json:"balance"`
	Cache      CacheStats  `json:"cache"`
}

// LoadBalance summarises how evenly jobs were spread over workers
type LoadBalance struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// Coefficient of variation (StdDev / Mean), 0 when perfectly even
	CV float64 `json:"cv"`
}

// summarizeLoad computes the load balance of per-worker job counts.
func summarizeLoad(jobs []uint64) LoadBalance {
	if len(jobs) == 0 {
		return LoadBalance{}
	}
	x := make([]float64, len(jobs))
	for i, n := range jobs {
		x[i] = float64(n)
	}

	lb := LoadBalance{
		Min: floats.Min(x),
		Max: floats.Max(x),
	}
	if len(x) == 1 {
		lb.Mean = x[0]
		return lb
	}
	lb.Mean, lb.StdDev = stat.MeanStdDev(x, nil)
	if lb.Mean > 0 && !math.IsNaN(lb.StdDev) {
		lb.CV = lb.StdDev / lb.Mean
	}
	return lb
}

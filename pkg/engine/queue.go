package engine

import "sync"

// jobQueue is a mutex-guarded FIFO owned by one worker. Other workers
// steal from it when their own queue is empty.
type jobQueue struct {
	mu   sync.Mutex
	jobs []*job
	head int
}

func (q *jobQueue) push(jobs ...*job) {
	if len(jobs) == 0 {
		return
	}
	q.mu.Lock()
	q.jobs = append(q.jobs, jobs...)
	q.mu.Unlock()
}

// pop removes the oldest job, or returns nil.
func (q *jobQueue) pop() *job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.jobs) {
		return nil
	}
	j := q.jobs[q.head]
	q.jobs[q.head] = nil
	q.head++
	if q.head == len(q.jobs) {
		q.jobs = q.jobs[:0]
		q.head = 0
	}
	return j
}

func (q *jobQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) - q.head
}

func (q *jobQueue) clear() {
	q.mu.Lock()
	q.jobs = nil
	q.head = 0
	q.mu.Unlock()
}

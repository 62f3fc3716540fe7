package batch

import (
	"sync"

	"partmix/internal/mix"
)

// JobQueue is a FIFO of jobs built once at batch start. Pop is safe for
// concurrent workers and never issues a job twice.
type JobQueue struct {
	mu   sync.Mutex
	jobs []mix.Job
	next int
}

// NewJobQueue copies jobs in submission order.
func NewJobQueue(jobs []mix.Job) *JobQueue {
	return &JobQueue{jobs: append([]mix.Job(nil), jobs...)}
}

// Pop removes the next job. It returns false once the queue is exhausted.
func (q *JobQueue) Pop() (mix.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.jobs) {
		return mix.Job{}, false
	}
	job := q.jobs[q.next]
	q.jobs[q.next] = mix.Job{}
	q.next++
	return job, true
}

// Len reports how many jobs remain.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) - q.next
}

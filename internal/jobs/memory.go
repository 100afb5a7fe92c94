package jobs

import (
	"context"
	"sync"
	"time"

	"mednotes/internal/apperr"
)

const defaultKeepFailed = 1000

// MemoryQueue keeps jobs in process. Done jobs are dropped; the most recent
// KeepFailed failed jobs stay visible through Jobs.
type MemoryQueue struct {
	Now        func() time.Time
	KeepFailed int

	mu     sync.Mutex
	jobs   []Job
	lastID uint64
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{Now: time.Now, KeepFailed: defaultKeepFailed}
}

func (q *MemoryQueue) Enqueue(_ context.Context, j Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.lastID++
	now := q.Now()
	j.ID = q.lastID
	if j.Status == "" {
		j.Status = StatusPending
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = defaultMaxAttempts
	}
	if j.RunAt.IsZero() {
		j.RunAt = now
	}
	j.CreatedAt, j.UpdatedAt = now, now
	q.jobs = append(q.jobs, j)
	return nil
}

func (q *MemoryQueue) Claim(_ context.Context, workerID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.Now()
	var due *Job
	for i := range q.jobs {
		j := &q.jobs[i]
		if j.Status != StatusPending || j.RunAt.After(now) {
			continue
		}
		if due == nil || j.RunAt.Before(due.RunAt) {
			due = j
		}
	}
	if due == nil {
		return nil, nil
	}

	due.Status = StatusRunning
	due.LockedBy = &workerID
	due.LockedAt = &now
	due.UpdatedAt = now
	out := *due
	return &out, nil
}

func (q *MemoryQueue) MarkDone(_ context.Context, id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
	return nil
}

func (q *MemoryQueue) MarkFailed(_ context.Context, id uint64, errMsg string) error {
	if err := q.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.LastError = &errMsg
	}); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	failed := 0
	for _, j := range q.jobs {
		if j.Status == StatusFailed {
			failed++
		}
	}
	if failed <= q.KeepFailed {
		return nil
	}
	kept := q.jobs[:0]
	for _, j := range q.jobs {
		if j.Status == StatusFailed && failed > q.KeepFailed {
			failed--
			continue
		}
		kept = append(kept, j)
	}
	q.jobs = kept
	return nil
}

func (q *MemoryQueue) RetryLater(_ context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error {
	return q.update(id, func(j *Job) {
		j.Status = StatusPending
		j.Attempts = attempts
		j.RunAt = runAt
		j.LockedBy, j.LockedAt = nil, nil
		j.LastError = &errMsg
	})
}

// Jobs returns a snapshot of the jobs still held, in enqueue order.
func (q *MemoryQueue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.jobs...)
}

func (q *MemoryQueue) update(id uint64, fn func(*Job)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	fn(&q.jobs[i])
	q.jobs[i].UpdatedAt = q.Now()
	return nil
}

func (q *MemoryQueue) indexOf(id uint64) int {
	for i := range q.jobs {
		if q.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

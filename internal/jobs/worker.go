package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"mednotes/internal/apperr"

	"go.uber.org/zap"
)

// ViewCounter is the part of the catalog the worker writes to.
type ViewCounter interface {
	IncrementViews(ctx context.Context, id uint64, n int64) error
}

type Worker struct {
	ID       string
	Queue    Queue
	Notes    ViewCounter
	Interval time.Duration
	Now      func() time.Time
}

func NewWorker(id string, q Queue, notes ViewCounter) *Worker {
	return &Worker{ID: id, Queue: q, Notes: notes, Interval: 800 * time.Millisecond, Now: time.Now}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	log := zap.L().With(zap.String("worker", w.ID))
	log.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			for {
				ok, err := w.Step(ctx)
				if err != nil {
					log.Error("worker claim error", zap.Error(err))
				}
				if !ok || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// Step claims and handles at most one due job. It reports whether a job was handled.
func (w *Worker) Step(ctx context.Context) (bool, error) {
	job, err := w.Queue.Claim(ctx, w.ID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.handle(ctx, job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeNoteViewed:
		w.handleNoteViewed(ctx, job)
	default:
		w.fail(ctx, job, "unknown job type")
	}
}

func (w *Worker) handleNoteViewed(ctx context.Context, job *Job) {
	var p noteViewed
	if err := json.Unmarshal(job.Payload, &p); err != nil || p.NoteID == 0 {
		w.fail(ctx, job, "bad payload")
		return
	}

	err := w.Notes.IncrementViews(ctx, p.NoteID, 1)
	switch {
	case err == nil, errors.Is(err, apperr.ErrNotFound):
		// a deleted note has nothing left to count
		if err := w.Queue.MarkDone(ctx, job.ID); err != nil {
			zap.L().Error("mark job done", zap.Uint64("job_id", job.ID), zap.Error(err))
		}
	default:
		w.retry(ctx, job, err.Error())
	}
}

func (w *Worker) fail(ctx context.Context, job *Job, errMsg string) {
	zap.L().Warn("job failed",
		zap.Uint64("job_id", job.ID),
		zap.String("type", job.Type),
		zap.String("error", errMsg),
	)
	if err := w.Queue.MarkFailed(ctx, job.ID, errMsg); err != nil {
		zap.L().Error("mark job failed", zap.Uint64("job_id", job.ID), zap.Error(err))
	}
}

func (w *Worker) retry(ctx context.Context, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		w.fail(ctx, job, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := w.Now().Add(time.Duration(sec) * time.Second)

	zap.L().Info("job retry scheduled",
		zap.Uint64("job_id", job.ID),
		zap.Int("attempts", attempts),
		zap.Time("run_at", next),
	)
	if err := w.Queue.RetryLater(ctx, job.ID, attempts, next, errMsg); err != nil {
		zap.L().Error("reschedule job", zap.Uint64("job_id", job.ID), zap.Error(err))
	}
}

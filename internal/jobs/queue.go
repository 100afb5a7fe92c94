package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// Queue stores jobs until a worker claims them. Claim returns nil when
// nothing is due.
type Queue interface {
	Enqueue(ctx context.Context, j Job) error
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error
}

// Recorder turns note views into NOTE_VIEWED jobs.
type Recorder struct {
	Queue Queue
	Now   func() time.Time
}

func NewRecorder(q Queue) *Recorder {
	return &Recorder{Queue: q, Now: time.Now}
}

func (r *Recorder) RecordView(ctx context.Context, owner string, noteID uint64) error {
	payload, _ := json.Marshal(noteViewed{NoteID: noteID})
	return r.Queue.Enqueue(ctx, Job{
		Owner:   owner,
		Type:    TypeNoteViewed,
		Payload: payload,
		RunAt:   r.Now(),
		Status:  StatusPending,
	})
}

package jobs

import "time"

const (
	TypeNoteViewed = "NOTE_VIEWED"
)

const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

const defaultMaxAttempts = 8

type Job struct {
	ID    uint64 `gorm:"primaryKey"`
	Owner string `gorm:"type:text;index;not null"` // viewer:<id> or session:<sid>

	Type    string `gorm:"type:text;not null"` // NOTE_VIEWED
	Payload []byte `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"` // PENDING/RUNNING/DONE/FAILED

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

type noteViewed struct {
	NoteID uint64 `json:"note_id"`
}

package progress

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"mednotes/internal/apperr"
	"mednotes/internal/latency"
)

// Progress is the reading position of one owner in one note.
// CompletionPercent never decreases; LastViewedPage follows the latest navigation.
type Progress struct {
	ID                uint64    `gorm:"primaryKey"`
	Owner             string    `gorm:"not null;uniqueIndex:uq_progress_owner_note"`
	NoteID            uint64    `gorm:"not null;uniqueIndex:uq_progress_owner_note;index"`
	CompletionPercent int       `gorm:"not null;default:0"`
	LastViewedPage    int       `gorm:"not null;default:1"`
	UpdatedAt         time.Time `gorm:"not null;default:now()"`
}

func (Progress) TableName() string { return "progress" }

// ViewerOwner keys progress to a registered viewer.
func ViewerOwner(id uint64) string { return "viewer:" + strconv.FormatUint(id, 10) }

// SessionOwner keys progress to an anonymous reader session.
func SessionOwner(sid string) string { return "session:" + sid }

// Percent is the share of the note read when standing on page.
func Percent(page, pageCount int) int {
	if pageCount <= 0 {
		return 0
	}
	p := int(math.Round(float64(page) * 100 / float64(pageCount)))
	return min(max(p, 0), 100)
}

type Store interface {
	Upsert(ctx context.Context, owner string, noteID uint64, completionPercent, lastViewedPage int) (Progress, error)
	ListForViewer(ctx context.Context, owner string) ([]Progress, error)
	ListAll(ctx context.Context) ([]Progress, error)
}

func check(owner string, completionPercent, lastViewedPage int) error {
	switch {
	case owner == "":
		return apperr.NewValidation("owner", "owner is required")
	case completionPercent < 0 || completionPercent > 100:
		return apperr.NewValidation("completionPercent", "completionPercent must be between 0 and 100")
	case lastViewedPage < 1:
		return apperr.NewValidation("lastViewedPage", "lastViewedPage must be 1 or greater")
	}
	return nil
}

type key struct {
	owner  string
	noteID uint64
}

type MemoryStore struct {
	Delay time.Duration
	Now   func() time.Time

	mu     sync.RWMutex
	rows   []Progress
	byKey  map[key]int
	lastID uint64
}

func NewMemoryStore(delay time.Duration) *MemoryStore {
	return &MemoryStore{Delay: delay, Now: time.Now, byKey: map[key]int{}}
}

func (s *MemoryStore) Seed(rows []Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range rows {
		k := key{p.Owner, p.NoteID}
		if i, ok := s.byKey[k]; ok {
			p.ID = s.rows[i].ID
			s.rows[i] = p
			continue
		}
		s.byKey[k] = len(s.rows)
		s.rows = append(s.rows, p)
		if p.ID > s.lastID {
			s.lastID = p.ID
		}
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, owner string, noteID uint64, completionPercent, lastViewedPage int) (Progress, error) {
	if err := check(owner, completionPercent, lastViewedPage); err != nil {
		return Progress{}, err
	}
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return Progress{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{owner, noteID}
	if i, ok := s.byKey[k]; ok {
		p := &s.rows[i]
		p.CompletionPercent = max(p.CompletionPercent, completionPercent)
		p.LastViewedPage = lastViewedPage
		p.UpdatedAt = s.Now()
		return *p, nil
	}

	s.lastID++
	p := Progress{
		ID:                s.lastID,
		Owner:             owner,
		NoteID:            noteID,
		CompletionPercent: completionPercent,
		LastViewedPage:    lastViewedPage,
		UpdatedAt:         s.Now(),
	}
	s.byKey[k] = len(s.rows)
	s.rows = append(s.rows, p)
	return p, nil
}

func (s *MemoryStore) ListForViewer(ctx context.Context, owner string) ([]Progress, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Progress, 0)
	for _, p := range s.rows {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Progress, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Progress(nil), s.rows...), nil
}

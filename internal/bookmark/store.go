package bookmark

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mednotes/internal/apperr"
	"mednotes/internal/latency"
)

// Bookmark is the single saved page for a (viewer, note) pair.
type Bookmark struct {
	ID         uint64    `gorm:"primaryKey"`
	ViewerID   uint64    `gorm:"not null;uniqueIndex:uq_bookmarks_viewer_note"`
	NoteID     uint64    `gorm:"not null;uniqueIndex:uq_bookmarks_viewer_note;index"`
	PageNumber int       `gorm:"not null"`
	Timestamp  time.Time `gorm:"not null;default:now()"`
}

type Store interface {
	ListForViewer(ctx context.Context, viewerID uint64) ([]Bookmark, error)
	ListForNote(ctx context.Context, noteID uint64) ([]Bookmark, error)
	// Upsert moves the pair's existing bookmark, or creates it on first use.
	Upsert(ctx context.Context, viewerID, noteID uint64, page int) (Bookmark, error)
	Get(ctx context.Context, id uint64) (Bookmark, error)
	Delete(ctx context.Context, id uint64) (Bookmark, error)
	ListAll(ctx context.Context) ([]Bookmark, error)
}

type pair struct {
	viewerID, noteID uint64
}

type MemoryStore struct {
	Delay time.Duration
	Now   func() time.Time

	mu     sync.RWMutex
	rows   []Bookmark
	byPair map[pair]uint64
	lastID uint64
}

func NewMemoryStore(delay time.Duration) *MemoryStore {
	return &MemoryStore{Delay: delay, Now: time.Now, byPair: map[pair]uint64{}}
}

// Seed loads fixtures. A later fixture for an existing pair replaces the earlier one.
func (s *MemoryStore) Seed(rows []Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range rows {
		k := pair{b.ViewerID, b.NoteID}
		if id, ok := s.byPair[k]; ok {
			s.rows[s.indexOf(id)] = Bookmark{ID: id, ViewerID: b.ViewerID, NoteID: b.NoteID, PageNumber: b.PageNumber, Timestamp: b.Timestamp}
			continue
		}
		s.rows = append(s.rows, b)
		s.byPair[k] = b.ID
		if b.ID > s.lastID {
			s.lastID = b.ID
		}
	}
}

func (s *MemoryStore) ListForViewer(ctx context.Context, viewerID uint64) ([]Bookmark, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	return s.filter(func(b Bookmark) bool { return b.ViewerID == viewerID }), nil
}

func (s *MemoryStore) ListForNote(ctx context.Context, noteID uint64) ([]Bookmark, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	return s.filter(func(b Bookmark) bool { return b.NoteID == noteID }), nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Bookmark, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	return s.filter(func(Bookmark) bool { return true }), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, viewerID, noteID uint64, page int) (Bookmark, error) {
	if page < 1 {
		return Bookmark{}, apperr.NewValidation("pageNumber", "pageNumber must be 1 or greater")
	}
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := pair{viewerID, noteID}
	if id, ok := s.byPair[k]; ok {
		i := s.indexOf(id)
		s.rows[i].PageNumber = page
		s.rows[i].Timestamp = s.Now()
		return s.rows[i], nil
	}

	s.lastID++
	b := Bookmark{ID: s.lastID, ViewerID: viewerID, NoteID: noteID, PageNumber: page, Timestamp: s.Now()}
	s.rows = append(s.rows, b)
	s.byPair[k] = b.ID
	return b, nil
}

func (s *MemoryStore) Get(ctx context.Context, id uint64) (Bookmark, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return Bookmark{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Bookmark{}, fmt.Errorf("bookmark %d: %w", id, apperr.ErrNotFound)
	}
	return s.rows[i], nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uint64) (Bookmark, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return Bookmark{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Bookmark{}, fmt.Errorf("bookmark %d: %w", id, apperr.ErrNotFound)
	}
	b := s.rows[i]
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	delete(s.byPair, pair{b.ViewerID, b.NoteID})
	return b, nil
}

func (s *MemoryStore) filter(keep func(Bookmark) bool) []Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Bookmark, 0)
	for _, b := range s.rows {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s *MemoryStore) indexOf(id uint64) int {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return i
		}
	}
	return -1
}

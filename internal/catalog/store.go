package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mednotes/internal/apperr"
	"mednotes/internal/latency"
	"mednotes/internal/validate"
)

// Store owns the note collection. Returned notes are copies.
type Store interface {
	List(ctx context.Context) ([]Note, error)
	GetByID(ctx context.Context, id uint64) (Note, error)
	ListBySubject(ctx context.Context, subject string) ([]Note, error)
	// Search matches query case-insensitively against title, description and subject.
	// An empty query is rejected; list the whole catalog instead.
	Search(ctx context.Context, query string) ([]Note, error)

	Create(ctx context.Context, d NoteDraft) (Note, error)
	Update(ctx context.Context, id uint64, p NotePatch) (Note, error)
	Delete(ctx context.Context, id uint64) (Note, error)

	IncrementViews(ctx context.Context, id uint64, n int64) error
}

// MemoryStore keeps notes in process memory, ordered by id.
type MemoryStore struct {
	Delay time.Duration
	Now   func() time.Time

	mu     sync.RWMutex
	notes  []Note
	lastID uint64
}

func NewMemoryStore(delay time.Duration) *MemoryStore {
	return &MemoryStore{Delay: delay, Now: time.Now}
}

// Seed loads fixture notes as is, keeping their ids and timestamps.
func (s *MemoryStore) Seed(notes []Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range notes {
		s.notes = append(s.notes, n)
		if n.ID > s.lastID {
			s.lastID = n.ID
		}
	}
	sort.SliceStable(s.notes, func(i, j int) bool { return s.notes[i].ID < s.notes[j].ID })
}

func (s *MemoryStore) List(ctx context.Context) ([]Note, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	return s.filter(func(Note) bool { return true }), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uint64) (Note, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return Note{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Note{}, fmt.Errorf("note %d: %w", id, apperr.ErrNotFound)
	}
	return s.notes[i], nil
}

func (s *MemoryStore) ListBySubject(ctx context.Context, subject string) ([]Note, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	return s.filter(func(n Note) bool { return n.Subject == subject }), nil
}

func (s *MemoryStore) Search(ctx context.Context, query string) ([]Note, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.NewValidation("q", "q is required")
	}
	q := strings.ToLower(query)
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	return s.filter(func(n Note) bool { return Matches(n, q) }), nil
}

// Matches reports whether the lowercased query occurs in the note's searchable fields.
func Matches(n Note, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(n.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(n.Description), lowerQuery) ||
		strings.Contains(strings.ToLower(n.Subject), lowerQuery)
}

func (s *MemoryStore) Create(ctx context.Context, d NoteDraft) (Note, error) {
	if err := validate.Struct(d); err != nil {
		return Note{}, err
	}
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// ids come from a high-water mark so a deleted id is never handed out again
	s.lastID++
	now := s.Now()
	n := Note{ID: s.lastID, CreatedAt: now, UpdatedAt: now}
	d.assign(&n)
	s.notes = append(s.notes, n)
	return n, nil
}

func (s *MemoryStore) Update(ctx context.Context, id uint64, p NotePatch) (Note, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Note{}, fmt.Errorf("note %d: %w", id, apperr.ErrNotFound)
	}

	d := p.apply(s.notes[i].draft())
	if err := validate.Struct(d); err != nil {
		return Note{}, err
	}
	d.assign(&s.notes[i])
	s.notes[i].UpdatedAt = s.Now()
	return s.notes[i], nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uint64) (Note, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Note{}, fmt.Errorf("note %d: %w", id, apperr.ErrNotFound)
	}
	removed := s.notes[i]
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	return removed, nil
}

func (s *MemoryStore) IncrementViews(ctx context.Context, id uint64, n int64) error {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("note %d: %w", id, apperr.ErrNotFound)
	}
	s.notes[i].ViewCount += n
	return nil
}

func (s *MemoryStore) filter(keep func(Note) bool) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func (s *MemoryStore) indexOf(id uint64) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// Subjects recomputes per-subject note counts. Subjects without notes are reported with zero.
func Subjects(ctx context.Context, s Store) ([]Subject, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(SubjectNames))
	for _, n := range notes {
		counts[n.Subject]++
	}

	out := make([]Subject, 0, len(SubjectNames))
	for _, name := range SubjectNames {
		out = append(out, Subject{Name: name, NoteCount: counts[name]})
	}
	return out, nil
}

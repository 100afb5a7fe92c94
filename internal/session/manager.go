package session

import (
	"context"
	"sync"
	"time"

	"mednotes/internal/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxIdle     = 30 * time.Minute
	defaultMaxSessions = 10000
)

type entry struct {
	s    *Session
	seen time.Time
}

// Manager keeps one Session per client session id. Only authenticated
// sessions are registered. Idle sessions are dropped from memory and
// rebuilt Unresolved from the slot when their client returns.
type Manager struct {
	Users       auth.UserStore
	Slot        Slot
	MaxIdle     time.Duration
	MaxSessions int
	Now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewManager(users auth.UserStore, slot Slot) *Manager {
	return &Manager{
		Users:       users,
		Slot:        slot,
		MaxIdle:     defaultMaxIdle,
		MaxSessions: defaultMaxSessions,
		Now:         time.Now,
		sessions:    map[string]*entry{},
	}
}

func slotKey(sid string) string { return "session:" + sid }

// Login signs in on a fresh session id. The session is kept only when the
// credentials are accepted.
func (m *Manager) Login(ctx context.Context, email, password string) (string, auth.User, error) {
	sid := uuid.NewString()
	s := New(slotKey(sid), m.Users, m.Slot)
	u, err := s.Login(ctx, email, password)
	if err != nil {
		return "", auth.User{}, err
	}
	m.register(sid, s)
	return sid, u, nil
}

func (m *Manager) Signup(ctx context.Context, d auth.SignupDraft) (string, auth.User, error) {
	sid := uuid.NewString()
	s := New(slotKey(sid), m.Users, m.Slot)
	u, err := s.Signup(ctx, d)
	if err != nil {
		return "", auth.User{}, err
	}
	m.register(sid, s)
	return sid, u, nil
}

func (m *Manager) register(sid string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sid] = &entry{s: s, seen: m.Now()}
	m.trim()
}

func (m *Manager) Get(sid string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sid]
	if !ok {
		e = &entry{s: New(slotKey(sid), m.Users, m.Slot)}
		m.sessions[sid] = e
	}
	e.seen = m.Now()
	m.trim()
	return e.s
}

// trim evicts the least recently seen sessions past MaxSessions. Must run with m.mu held.
func (m *Manager) trim() {
	for m.MaxSessions > 0 && len(m.sessions) > m.MaxSessions {
		var oldest string
		var at time.Time
		for sid, e := range m.sessions {
			if oldest == "" || e.seen.Before(at) {
				oldest, at = sid, e.seen
			}
		}
		delete(m.sessions, oldest)
	}
}

// Sweep drops sessions idle for longer than MaxIdle and reports how many went.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.Now().Add(-m.MaxIdle)
	n := 0
	for sid, e := range m.sessions {
		if e.seen.Before(cutoff) {
			delete(m.sessions, sid)
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				zap.L().Debug("idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// End logs the session out and drops it from memory.
func (m *Manager) End(ctx context.Context, sid string) error {
	if err := m.Get(sid).Logout(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, sid)
	m.mu.Unlock()
	return nil
}

// Resolve returns the session's viewer, or nil for a session that is not
// signed in. Sessions that resolve to nobody are not kept in memory.
func (m *Manager) Resolve(ctx context.Context, sid string) (*auth.User, error) {
	u := m.Get(sid).Current(ctx)
	if u == nil {
		m.mu.Lock()
		delete(m.sessions, sid)
		m.mu.Unlock()
	}
	return u, nil
}

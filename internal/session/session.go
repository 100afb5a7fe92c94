package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mednotes/internal/apperr"
	"mednotes/internal/auth"
	"mednotes/internal/validate"

	"go.uber.org/zap"
)

type State int

const (
	Unresolved State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// record is the durable form of the current viewer. It never carries the password hash.
type record struct {
	ID                uint64     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              string     `json:"role"`
	IsPremium         bool       `json:"isPremium"`
	PremiumUpgradedAt *time.Time `json:"premiumUpgradedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
}

func toRecord(u auth.User) record {
	return record{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		IsPremium:         u.IsPremium,
		PremiumUpgradedAt: u.PremiumUpgradedAt,
		CreatedAt:         u.CreatedAt,
		LastLogin:         u.LastLogin,
	}
}

func (r record) user() auth.User {
	return auth.User{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		Role:              r.Role,
		IsPremium:         r.IsPremium,
		PremiumUpgradedAt: r.PremiumUpgradedAt,
		CreatedAt:         r.CreatedAt,
		LastLogin:         r.LastLogin,
	}
}

// Session tracks the viewer of one client. It starts Unresolved and settles
// on the first Current call or identity change.
type Session struct {
	key   string
	users auth.UserStore
	slot  Slot
	now   func() time.Time

	mu      sync.Mutex
	state   State
	current *auth.User
	stored  []byte
}

func New(key string, users auth.UserStore, slot Slot) *Session {
	return &Session{key: key, users: users, slot: slot, now: time.Now}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the signed-in viewer or nil. The viewer is re-read from
// the user store so changes made through another session show up here.
// Storage problems are logged and reported as no viewer.
func (s *Session) Current(ctx context.Context) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Unresolved {
		s.restore(ctx)
	}
	if s.current == nil {
		return nil
	}
	s.refresh(ctx)
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// refresh must run with s.mu held. A viewer that no longer exists signs the
// session out; other lookup failures keep the cached viewer.
func (s *Session) refresh(ctx context.Context) {
	u, err := s.users.GetByID(ctx, s.current.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		zap.L().Warn("session viewer gone", zap.String("key", s.key), zap.Uint64("viewer_id", s.current.ID))
		_ = s.slot.Clear(ctx, s.key)
		s.current, s.stored = nil, nil
		s.state = Anonymous
		return
	}
	if err != nil {
		zap.L().Warn("session refresh failed", zap.String("key", s.key), zap.Error(err))
		return
	}

	b, err := json.Marshal(toRecord(u))
	if err != nil || bytes.Equal(b, s.stored) {
		return
	}
	if err := s.slot.Store(ctx, s.key, b); err != nil {
		zap.L().Warn("session slot rewrite failed", zap.String("key", s.key), zap.Error(err))
	} else {
		s.stored = b
	}
	u.PasswordHash = ""
	s.current = &u
}

func (s *Session) restore(ctx context.Context) {
	b, ok, err := s.slot.Load(ctx, s.key)
	if err != nil {
		zap.L().Warn("session restore failed", zap.String("key", s.key), zap.Error(err))
		return
	}
	if !ok {
		s.state = Anonymous
		return
	}

	var r record
	if err := json.Unmarshal(b, &r); err != nil || r.ID == 0 {
		zap.L().Warn("dropping unreadable session", zap.String("key", s.key), zap.Error(err))
		_ = s.slot.Clear(ctx, s.key)
		s.state = Anonymous
		return
	}
	u := r.user()
	s.current = &u
	s.stored = b
	s.state = Authenticated
}

func (s *Session) Login(ctx context.Context, email, password string) (auth.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return auth.User{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return auth.User{}, err
	}
	if !auth.ComparePassword(u.PasswordHash, password) {
		return auth.User{}, apperr.ErrInvalidCredentials
	}

	now := s.now()
	u.LastLogin = &now
	if u, err = s.users.Save(ctx, u); err != nil {
		return auth.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticate(ctx, u)
}

func (s *Session) Signup(ctx context.Context, d auth.SignupDraft) (auth.User, error) {
	d.Email = auth.NormalizeEmail(d.Email)
	if err := validate.Struct(d); err != nil {
		return auth.User{}, err
	}

	hash, err := auth.HashPassword(d.Password)
	if err != nil {
		return auth.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u, err := s.users.Create(ctx, auth.User{
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: hash,
		Role:         auth.RoleStandard,
		CreatedAt:    now,
		LastLogin:    &now,
	})
	if err != nil {
		return auth.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticate(ctx, u)
}

func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.slot.Clear(ctx, s.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.current, s.stored = nil, nil
	s.state = Anonymous
	return nil
}

// Upgrade grants premium to the signed-in viewer. Upgrading twice keeps the first timestamp.
func (s *Session) Upgrade(ctx context.Context, viewerID uint64) (auth.User, error) {
	return s.mutate(ctx, viewerID, func(u *auth.User) error {
		if u.IsPremium {
			return nil
		}
		now := s.now()
		u.IsPremium = true
		u.PremiumUpgradedAt = &now
		return nil
	})
}

func (s *Session) UpdateProfile(ctx context.Context, viewerID uint64, p auth.ProfilePatch) (auth.User, error) {
	if p.Email != nil {
		e := auth.NormalizeEmail(*p.Email)
		p.Email = &e
	}
	if err := validate.Struct(p); err != nil {
		return auth.User{}, err
	}
	return s.mutate(ctx, viewerID, func(u *auth.User) error {
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.Email != nil {
			u.Email = *p.Email
		}
		return nil
	})
}

func (s *Session) mutate(ctx context.Context, viewerID uint64, apply func(*auth.User) error) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Unresolved {
		s.restore(ctx)
	}
	if s.current == nil || s.current.ID != viewerID {
		return auth.User{}, apperr.ErrUnauthorized
	}

	u, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return auth.User{}, err
	}
	if err := apply(&u); err != nil {
		return auth.User{}, err
	}
	if u, err = s.users.Save(ctx, u); err != nil {
		return auth.User{}, err
	}
	return s.authenticate(ctx, u)
}

// authenticate must run with s.mu held.
func (s *Session) authenticate(ctx context.Context, u auth.User) (auth.User, error) {
	b, err := json.Marshal(toRecord(u))
	if err != nil {
		return auth.User{}, fmt.Errorf("encode session: %w", err)
	}
	if err := s.slot.Store(ctx, s.key, b); err != nil {
		return auth.User{}, fmt.Errorf("store session: %w", err)
	}
	u.PasswordHash = ""
	cur := u
	s.current = &cur
	s.stored = b
	s.state = Authenticated
	return u, nil
}

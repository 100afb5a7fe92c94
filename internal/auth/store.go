package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mednotes/internal/apperr"
	"mednotes/internal/latency"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// UserStore holds credential records. Emails are stored lowercased.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// Create assigns the next id and fails with ErrDuplicateEmail on conflict.
	Create(ctx context.Context, u User) (User, error)
	Save(ctx context.Context, u User) (User, error)
	Count(ctx context.Context) (int, error)
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

type MemoryUserStore struct {
	Delay time.Duration

	mu     sync.RWMutex
	users  map[uint64]User
	lastID uint64
}

func NewMemoryUserStore(delay time.Duration) *MemoryUserStore {
	return &MemoryUserStore{Delay: delay, users: map[uint64]User{}}
}

func (s *MemoryUserStore) Seed(users []User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		u.Email = NormalizeEmail(u.Email)
		s.users[u.ID] = u
		if u.ID > s.lastID {
			s.lastID = u.ID
		}
	}
}

func (s *MemoryUserStore) GetByID(ctx context.Context, id uint64) (User, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	return u, nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.byEmail(NormalizeEmail(email)); ok {
		return u, nil
	}
	return User{}, fmt.Errorf("user %q: %w", email, apperr.ErrNotFound)
}

func (s *MemoryUserStore) Create(ctx context.Context, u User) (User, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	if _, ok := s.byEmail(u.Email); ok {
		return User{}, apperr.ErrDuplicateEmail
	}
	s.lastID++
	u.ID = s.lastID
	if u.Role == "" {
		u.Role = RoleStandard
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryUserStore) Save(ctx context.Context, u User) (User, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return User{}, fmt.Errorf("user %d: %w", u.ID, apperr.ErrNotFound)
	}
	u.Email = NormalizeEmail(u.Email)
	if other, ok := s.byEmail(u.Email); ok && other.ID != u.ID {
		return User{}, apperr.ErrDuplicateEmail
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryUserStore) Count(ctx context.Context) (int, error) {
	if err := latency.Sleep(ctx, s.Delay); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryUserStore) byEmail(email string) (User, bool) {
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

// GormUserStore needs the connection opened with TranslateError so unique
// violations surface as gorm.ErrDuplicatedKey.
type GormUserStore struct {
	DB *gorm.DB
}

func (s *GormUserStore) GetByID(ctx context.Context, id uint64) (User, error) {
	var u User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return User{}, translate(err, "get user")
	}
	return u, nil
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	var u User
	if err := s.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		return User{}, translate(err, "find user")
	}
	return u, nil
}

func (s *GormUserStore) Create(ctx context.Context, u User) (User, error) {
	u.ID = 0
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleStandard
	}
	if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
		return User{}, translate(err, "create user")
	}
	return u, nil
}

func (s *GormUserStore) Save(ctx context.Context, u User) (User, error) {
	u.Email = NormalizeEmail(u.Email)
	res := s.DB.WithContext(ctx).Model(&User{}).Where("id = ?", u.ID).Updates(map[string]any{
		"name":                u.Name,
		"email":               u.Email,
		"is_premium":          u.IsPremium,
		"premium_upgraded_at": u.PremiumUpgradedAt,
		"last_login":          u.LastLogin,
	})
	if res.Error != nil {
		return User{}, translate(res.Error, "save user")
	}
	if res.RowsAffected == 0 {
		return User{}, errors.Wrapf(apperr.ErrNotFound, "user %d", u.ID)
	}
	return u, nil
}

func (s *GormUserStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&User{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "count users")
	}
	return int(n), nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(apperr.ErrNotFound, op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(apperr.ErrDuplicateEmail, op)
	default:
		return errors.Wrap(err, op)
	}
}

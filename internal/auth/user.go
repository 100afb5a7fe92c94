package auth

import "time"

const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

// Kind is the closed set of viewer identities behaviour branches on.
type Kind int

const (
	Anonymous Kind = iota
	Standard
	Premium
	Admin
)

func (k Kind) String() string {
	switch k {
	case Anonymous:
		return "anonymous"
	case Standard:
		return "standard"
	case Premium:
		return "premium"
	case Admin:
		return "admin"
	}
	return "unknown"
}

// User is a registered viewer. IsPremium only ever moves from false to true.
type User struct {
	ID                uint64     `gorm:"primaryKey"`
	Name              string     `gorm:"not null;default:''"`
	Email             string     `gorm:"uniqueIndex;not null"`
	PasswordHash      string     `gorm:"not null"`
	Role              string     `gorm:"not null;default:'standard'"`
	IsPremium         bool       `gorm:"not null;default:false"`
	PremiumUpgradedAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt         time.Time  `gorm:"not null;default:now()"`
	LastLogin         *time.Time `gorm:"type:timestamptz"`
}

// KindOf classifies a viewer; nil is anonymous.
func KindOf(u *User) Kind {
	switch {
	case u == nil:
		return Anonymous
	case u.Role == RoleAdmin:
		return Admin
	case u.IsPremium:
		return Premium
	default:
		return Standard
	}
}

type SignupDraft struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type ProfilePatch struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

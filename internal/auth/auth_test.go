package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mednotes/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want Kind
	}{
		{name: "nil is anonymous", user: nil, want: Anonymous},
		{name: "standard", user: &User{ID: 1, Role: RoleStandard}, want: Standard},
		{name: "premium", user: &User{ID: 1, Role: RoleStandard, IsPremium: true}, want: Premium},
		{name: "admin wins over premium", user: &User{ID: 1, Role: RoleAdmin, IsPremium: true}, want: Admin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.user))
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, ComparePassword(hash, "correct horse"))
	assert.False(t, ComparePassword(hash, "wrong horse"))
}

func TestJWT(t *testing.T) {
	j := NewJWT("secret")
	tok, err := j.Sign("sess-1", 42)
	require.NoError(t, err)

	sid, uid, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sid)
	assert.Equal(t, uint64(42), uid)

	_, _, err = NewJWT("other").Verify(tok)
	assert.Error(t, err)

	_, _, err = j.Verify("garbage")
	assert.Error(t, err)
}

func TestMemoryUserStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore(0)
	s.Seed([]User{{ID: 3, Email: "Ana@Example.com", Name: "Ana"}})

	u, err := s.Create(ctx, User{Email: "ben@example.com", Name: "Ben"})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), u.ID)
	assert.Equal(t, RoleStandard, u.Role)

	_, err = s.Create(ctx, User{Email: " ANA@example.com "})
	assert.True(t, errors.Is(err, apperr.ErrDuplicateEmail))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := s.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), found.ID)

	_, err = s.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	u.Email = "ana@example.com"
	_, err = s.Save(ctx, u)
	assert.True(t, errors.Is(err, apperr.ErrDuplicateEmail))

	_, err = s.Save(ctx, User{ID: 99})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

type stubResolver map[string]*User

func (s stubResolver) Resolve(_ context.Context, sid string) (*User, error) {
	return s[sid], nil
}

func TestIdentifyAndRequireAuth(t *testing.T) {
	j := NewJWT("secret")
	ana := &User{ID: 1, Email: "ana@example.com"}
	resolver := stubResolver{"live": ana}

	live, err := j.Sign("live", 1)
	require.NoError(t, err)
	gone, err := j.Sign("gone", 1)
	require.NoError(t, err)
	mismatch, err := j.Sign("live", 2)
	require.NoError(t, err)

	var seen *User
	h := Identify(j, resolver)(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ViewerFromContext(r.Context())
		sid, _ := SessionIDFromContext(r.Context())
		assert.Equal(t, "live", sid)
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid session", header: "Bearer " + live, want: http.StatusNoContent},
		{name: "no header", header: "", want: http.StatusUnauthorized},
		{name: "logged out session", header: "Bearer " + gone, want: http.StatusUnauthorized},
		{name: "user mismatch", header: "Bearer " + mismatch, want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, ana, seen)
			}
		})
	}
}

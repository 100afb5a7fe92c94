package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const (
	viewerKey    ctxKey = "viewer"
	sessionIDKey ctxKey = "session_id"
)

// Resolver maps a session id to its current viewer, or nil when the session
// is anonymous.
type Resolver interface {
	Resolve(ctx context.Context, sessionID string) (*User, error)
}

func ViewerFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(viewerKey).(*User)
	return u
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionIDKey).(string)
	return sid, ok
}

func WithViewer(ctx context.Context, sessionID string, u *User) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, viewerKey, u)
}

// Identify attaches the viewer behind a bearer token when one is present.
// Requests without a token, or with a stale one, continue anonymously.
func Identify(jwtSvc *JWT, sessions Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			sid, uid, err := jwtSvc.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			u, err := sessions.Resolve(r.Context(), sid)
			if err != nil || u == nil || u.ID != uid {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), sid, u)))
		})
	}
}

// RequireAuth rejects requests that Identify left anonymous.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ViewerFromContext(r.Context()) == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

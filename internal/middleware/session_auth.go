package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const ctxSessionKey contextKey = "session"

// RoleModerator marks sessions allowed to review listings and author cases.
const RoleModerator = "moderator"

// Session is the authenticated caller extracted from the bearer token.
// Identity comes from the verified token claims and is not re-checked
// downstream.
type Session struct {
	UserID uuid.UUID
	Role   string
}

// TokenValidator checks a session token and returns the user id and role.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// SessionAuth authenticates requests by validating the Bearer token and
// putting the resulting Session into request context.
func SessionAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			userID, role, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid session token"}`, http.StatusUnauthorized)
				return
			}
			ctx := WithSession(r.Context(), &Session{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireModerator rejects sessions without the moderator role. Chain after
// SessionAuth.
func RequireModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		if sess == nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if sess.Role != RoleModerator {
			http.Error(w, `{"error":"moderator privilege required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromCtx returns the authenticated session or nil.
func SessionFromCtx(ctx context.Context) *Session {
	sess, _ := ctx.Value(ctxSessionKey).(*Session)
	return sess
}

// WithSession returns a context carrying the given session.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, sess)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

package auth

import (
	"context"
	"net/http"
)

type contextKey struct{}

// UserID returns the authenticated user's ID from the request context.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok
}

// WithUserID returns a context carrying the user ID. Exposed for handler
// tests.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// RequireAuth is middleware that validates the session cookie and puts
// the user ID into the request context. Unauthenticated requests get a
// plain 401; the JSON clients treat any 401 as "logged out".
func RequireAuth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.Validate(r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"
)

type userKey string

const (
	userIDKey userKey = "user_id"

	// UserHeader carries the caller identity. There is no authentication;
	// the header only partitions tasks between users.
	UserHeader = "X-User-ID"
)

// UserID stores the caller identity on the request context, falling back to
// defaultUser when the header is absent.
func UserID(defaultUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get(UserHeader))
			if user == "" {
				user = defaultUser
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), user)))
		})
	}
}

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if strings.TrimSpace(userID) == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

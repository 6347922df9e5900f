package common

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	handleKey contextKey = "handle"
)

var publicPaths = map[string]bool{
	"/api/v1/health": true,
	"/metrics":       true,
	"/ws":            true, // authenticates with the first frame
}

// AuthMiddleware validates the Bearer token on every non-public request and
// injects the caller's identity into the request context.
func AuthMiddleware(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// Authorization: Bearer <token>
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				WriteError(w, http.StatusUnauthorized, "authorization required")
				return
			}

			claims, err := issuer.ValidToken(parts[1])
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.UserID, claims.Handle)))
		})
	}
}

func WithIdentity(ctx context.Context, userID, handle string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, handleKey, handle)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

func HandleFromContext(ctx context.Context) string {
	handle, _ := ctx.Value(handleKey).(string)
	return handle
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/farm-telemetry/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// ServiceAuth returns middleware that requires a Bearer JWT signed with the
// shared HS256 service secret and injects its claims into the context.
func ServiceAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := jwtinfra.Verify(tokenStr, secret, "")
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}

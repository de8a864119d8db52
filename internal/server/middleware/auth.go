package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const bearerTokenKey contextKey = "bearer_token"

// BearerToken extracts the Authorization bearer token, if any, into the
// request context. No verification happens here: the authorization
// pipeline verifies tokens itself, because an absent token is a legitimate
// lowest-privilege request, not a 401.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			ctx := context.WithValue(r.Context(), bearerTokenKey, token)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// GetBearerToken returns the raw bearer token from the context, or the
// empty string for unauthenticated requests.
func GetBearerToken(ctx context.Context) string {
	if token, ok := ctx.Value(bearerTokenKey).(string); ok {
		return token
	}
	return ""
}

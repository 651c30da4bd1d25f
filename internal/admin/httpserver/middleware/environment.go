package middleware

import (
	"context"
	"net/http"
	"strings"
)

const defaultEnvironment = "Development"

type environmentContextKey struct{}

// Environment attaches the deployment label (Development, Staging,
// Production) so pages can show a banner outside production.
func Environment(value string) func(http.Handler) http.Handler {
	label := strings.TrimSpace(value)
	if label == "" {
		label = defaultEnvironment
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), environmentContextKey{}, label)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EnvironmentFromContext returns the label registered for the request.
func EnvironmentFromContext(ctx context.Context) string {
	if ctx == nil {
		return defaultEnvironment
	}
	if value, ok := ctx.Value(environmentContextKey{}).(string); ok && value != "" {
		return value
	}
	return defaultEnvironment
}

package middleware

import (
	"net/http"

	"finitefield.org/tenant-admin/internal/admin/rbac"
)

// RequireCapability aborts the request when the authenticated user lacks the required capability.
func RequireCapability(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || !rbac.HasCapability(user.Roles, capability) {
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	if IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Refresh", "true")
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

package helpers

import (
	"context"

	"finitefield.org/tenant-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tenant-admin/internal/admin/rbac"
)

// HasCapability reports whether the authenticated staff member possesses the capability.
// Empty capability strings default to true to avoid guarding unconstrained actions.
func HasCapability(ctx context.Context, capability rbac.Capability) bool {
	if capability == "" {
		return true
	}
	user, ok := middleware.UserFromContext(ctx)
	if !ok || user == nil {
		return false
	}
	return rbac.HasCapability(user.Roles, capability)
}

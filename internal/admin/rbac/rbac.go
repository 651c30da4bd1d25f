package rbac

import (
	"strings"
)

// Role represents a tenant staff access tier.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSupport Role = "support"
)

// Capability represents a discrete console feature checked in handlers and templates.
type Capability string

const (
	CapConsoleSignIn     Capability = "console.signin"
	CapDashboardOverview Capability = "dashboard.view"
	CapModelsView        Capability = "models.view"
	CapModelsManage      Capability = "models.manage"
	CapStoreView         Capability = "store.view"
	CapStoreEdit         Capability = "store.edit"
	CapPaymentSettings   Capability = "payments.settings"
	CapStaffManage       Capability = "staff.manage"
)

// capabilityRoles maps each capability to the roles permitted to access it.
var capabilityRoles = map[Capability]Roles{
	CapConsoleSignIn:     {RoleOwner, RoleAdmin, RoleManager},
	CapDashboardOverview: {RoleOwner, RoleAdmin, RoleManager},
	CapModelsView:        {RoleOwner, RoleAdmin, RoleManager},
	CapModelsManage:      {RoleOwner, RoleAdmin},
	CapStoreView:         {RoleOwner, RoleAdmin, RoleManager},
	CapStoreEdit:         {RoleOwner, RoleAdmin},
	CapPaymentSettings:   {RoleOwner},
	CapStaffManage:       {RoleOwner, RoleAdmin},
}

// Roles captures a list of roles and exposes intersection checks used for RBAC evaluation.
type Roles []Role

// Has returns true if the provided role exists in the set.
func (rs Roles) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// Intersects returns true if any role in the candidate slice is also present in the set.
func (rs Roles) Intersects(candidate Roles) bool {
	for _, role := range candidate {
		if rs.Has(role) {
			return true
		}
	}
	return false
}

// NormaliseRoles converts raw role strings into canonical Role values.
func NormaliseRoles(raw []string) Roles {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[Role]struct{}, len(raw))
	roles := make(Roles, 0, len(raw))
	for _, val := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(val)))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles
}

// HasCapability reports whether the roles grant the capability. Owners hold
// every defined capability of their tenant.
func HasCapability(userRoles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	allowed, ok := capabilityRoles[capability]
	if !ok {
		return false
	}
	roles := NormaliseRoles(userRoles)
	if roles.Has(RoleOwner) {
		return true
	}
	return allowed.Intersects(roles)
}

// CanSignIn reports whether the roles may use the admin console at all.
// Support staff authenticate against the same service but have no console access.
func CanSignIn(userRoles []string) bool {
	return HasCapability(userRoles, CapConsoleSignIn)
}

// CapabilitiesForRoles enumerates the capabilities accessible to the provided roles.
func CapabilitiesForRoles(userRoles []string) map[Capability]bool {
	caps := make(map[Capability]bool, len(capabilityRoles))
	for capability := range capabilityRoles {
		if HasCapability(userRoles, capability) {
			caps[capability] = true
		}
	}
	return caps
}

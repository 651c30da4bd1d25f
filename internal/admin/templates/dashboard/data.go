package dashboard

import (
	"strings"
	"time"

	"finitefield.org/tenant-admin/internal/admin/rbac"
	"finitefield.org/tenant-admin/internal/admin/templates/helpers"
)

// PageData is the dashboard render payload.
type PageData struct {
	Title          string
	Staff          StaffView
	Sections       []SectionView
	SessionExpires string
	LogoutPath     string
	CSRFToken      string
	Environment    string
}

// StaffView is the signed-in staff summary.
type StaffView struct {
	Email    string
	TenantID string
	Roles    []string
}

// SectionView is one console area. Sections are shown only to staff holding Capability.
type SectionView struct {
	Key         string
	Label       string
	Description string
	Path        string
	Capability  rbac.Capability
}

// Input collects what the handler knows about the request.
type Input struct {
	BasePath   string
	Email      string
	TenantID   string
	Roles      []string
	ExpiresAt  time.Time
	Now        time.Time
	CSRFToken  string
	Env        string
	LogoutPath string
}

// BuildPageData assembles the dashboard payload.
func BuildPageData(in Input) PageData {
	base := strings.TrimRight(in.BasePath, "/")
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	return PageData{
		Title: "Dashboard",
		Staff: StaffView{
			Email:    in.Email,
			TenantID: in.TenantID,
			Roles:    append([]string(nil), in.Roles...),
		},
		Sections: []SectionView{
			{Key: "models", Label: "AI models", Description: "Configure the models serving your storefront.", Path: base + "/models", Capability: rbac.CapModelsView},
			{Key: "store", Label: "Store details", Description: "Business profile, addresses and opening hours.", Path: base + "/store", Capability: rbac.CapStoreView},
			{Key: "payments", Label: "Payment settings", Description: "Payment providers and payout schedule.", Path: base + "/payments", Capability: rbac.CapPaymentSettings},
			{Key: "staff", Label: "Staff", Description: "Invite staff and manage their roles.", Path: base + "/staff", Capability: rbac.CapStaffManage},
		},
		SessionExpires: helpers.Until(in.ExpiresAt, now),
		LogoutPath:     in.LogoutPath,
		CSRFToken:      in.CSRFToken,
		Environment:    in.Env,
	}
}

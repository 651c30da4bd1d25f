package ui

import (
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "finitefield.org/tenant-admin/internal/admin/httpserver/middleware"
	"finitefield.org/tenant-admin/internal/admin/observability"
	"finitefield.org/tenant-admin/internal/admin/templates/dashboard"
)

// Dependencies collects what the UI handlers need from the server.
type Dependencies struct {
	BasePath string
	Now      func() time.Time
}

// Handlers exposes HTTP handlers for admin UI pages.
type Handlers struct {
	basePath string
	now      func() time.Time
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{basePath: deps.BasePath, now: now}
}

// Dashboard renders the signed-in staff summary.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	input := dashboard.Input{
		BasePath:   h.basePath,
		Email:      user.Email,
		TenantID:   user.TenantID,
		Roles:      user.Roles,
		Now:        h.now(),
		CSRFToken:  custommw.CSRFTokenFromContext(r.Context()),
		Env:        custommw.EnvironmentFromContext(r.Context()),
		LogoutPath: joinBasePath(h.basePath, "/logout"),
	}
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess.SignedIn() {
		input.ExpiresAt = sess.ExpiresAt()
	}
	if input.Email == "" {
		input.Email = user.ID
	}

	observability.FromContext(r.Context()).Debug("render dashboard", zap.String("tenant_id", user.TenantID))
	templ.Handler(dashboard.Index(dashboard.BuildPageData(input))).ServeHTTP(w, r)
}

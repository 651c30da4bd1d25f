package dashboard

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/tenant-admin/internal/admin/templates/helpers"
	"finitefield.org/tenant-admin/internal/admin/templates/layout"
)

// Index renders the dashboard document.
func Index(data PageData) templ.Component {
	return layout.Page(layout.Meta{Title: data.Title, Environment: data.Environment}, content(data))
}

func content(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := helpers.NewWriter(w)
		hw.Raw(`<header class="topbar"><h1>`)
		hw.Text(data.Title)
		hw.Raw(`</h1><div class="staff" data-staff>`)
		hw.Text(data.Staff.Email)
		if data.Staff.TenantID != "" {
			hw.Raw(` <span class="tenant" data-tenant>`)
			hw.Text(data.Staff.TenantID)
			hw.Raw("</span>")
		}
		for _, role := range data.Staff.Roles {
			hw.Raw(`<span`)
			hw.Attr("class", helpers.BadgeClass("success"))
			hw.Raw(` data-role>`)
			hw.Text(role)
			hw.Raw("</span>")
		}
		hw.Raw(`</div><form method="post" class="logout"`)
		hw.Attr("action", data.LogoutPath)
		hw.Raw(`><input type="hidden" name="csrf_token"`)
		hw.Attr("value", data.CSRFToken)
		hw.Raw(`><button type="submit">Sign out</button></form></header>`)

		if data.SessionExpires != "" {
			hw.Raw(`<p class="hint" data-session-expires>Session expires `)
			hw.Text(data.SessionExpires)
			hw.Raw("</p>")
		}

		hw.Raw(`<ul class="sections">`)
		visible := 0
		for _, section := range data.Sections {
			if !helpers.HasCapability(ctx, section.Capability) {
				continue
			}
			visible++
			hw.Raw(`<li class="section"`)
			hw.Attr("data-section", section.Key)
			hw.Raw(`><a`)
			hw.Attr("href", section.Path)
			hw.Raw(">")
			hw.Text(section.Label)
			hw.Raw(`</a><p>`)
			hw.Text(strings.TrimSpace(section.Description))
			hw.Raw("</p></li>")
		}
		hw.Raw("</ul>")
		if visible == 0 {
			hw.Raw(`<p class="empty">No console areas are available for your role.</p>`)
		}
		return hw.Err()
	})
}

// Package layout renders the document shell shared by console pages.
package layout

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/tenant-admin/internal/admin/templates/helpers"
	"finitefield.org/tenant-admin/public"
)

const (
	productName   = "Tenant Admin"
	htmxScriptURL = "https://unpkg.com/htmx.org@2.0.4"
)

// Meta describes the document head.
type Meta struct {
	Title       string
	Environment string
	// Refresh, when set, emits a no-script meta refresh to RefreshURL after
	// RefreshSeconds.
	Refresh        bool
	RefreshSeconds int
	RefreshURL     string
}

// DocumentTitle returns "<title> | Tenant Admin".
func (m Meta) DocumentTitle() string {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return productName
	}
	return title + " | " + productName
}

// Page wraps body in the HTML document.
func Page(meta Meta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := helpers.NewWriter(w)
		hw.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.Raw("<title>")
		hw.Text(meta.DocumentTitle())
		hw.Raw("</title>")
		if meta.Refresh {
			hw.Raw(`<noscript><meta http-equiv="refresh"`)
			hw.Attr("content", strconv.Itoa(meta.RefreshSeconds)+";url="+meta.RefreshURL)
			hw.Raw("></noscript>")
		}
		hw.Raw(`<link rel="stylesheet"`)
		hw.Attr("href", public.Stylesheet)
		hw.Raw(`><script defer`)
		hw.Attr("src", htmxScriptURL)
		hw.Raw(`></script></head><body class="admin">`)
		if env := strings.TrimSpace(meta.Environment); env != "" && !strings.EqualFold(env, "production") {
			hw.Raw(`<div class="env-banner" data-environment`)
			hw.Attr("data-env", env)
			hw.Raw(">")
			hw.Text(env)
			hw.Raw("</div>")
		}
		hw.Raw(`<main class="admin-main">`)
		hw.Component(ctx, body)
		hw.Raw("</main></body></html>")
		return hw.Err()
	})
}

package auth

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/tenant-admin/internal/admin/templates/helpers"
	"finitefield.org/tenant-admin/internal/admin/templates/layout"
)

const (
	pageTitle = "Sign in"
	panelID   = "login-panel"
)

// clearErrorScript removes the failure message once the user edits a field
// marked data-clears-error. It binds to the panel it ships in, so an htmx swap
// drops the old listener along with the old panel.
const clearErrorScript = `<script>(function(p){if(!p)return;p.addEventListener("input",function(e){` +
	`if(!e.target.hasAttribute("data-clears-error"))return;` +
	`p.querySelectorAll("[data-login-error]").forEach(function(n){n.remove()})})})` +
	`(document.getElementById("` + panelID + `"));</script>`

// LoginPage renders the full login document.
func LoginPage(data LoginPageData) templ.Component {
	return layout.Page(layout.Meta{Title: pageTitle, Environment: data.Environment}, LoginPanel(data))
}

// LoginPanel renders the swappable form panel. htmx submissions receive
// only this fragment.
func LoginPanel(data LoginPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := helpers.NewWriter(w)
		hw.Raw(`<section class="login-panel"`)
		hw.Attr("id", panelID)
		hw.Raw(`><h1>Sign in to the admin console</h1>`)

		if data.Message != "" {
			hw.Raw(`<p class="notice" role="status">`)
			hw.Text(data.Message)
			hw.Raw("</p>")
		}
		if data.Error != "" {
			hw.Raw(`<p class="form-error" role="alert" data-login-error>`)
			hw.Text(data.Error)
			hw.Raw("</p>")
		}

		hw.Raw(`<form method="post" class="login-form"`)
		hw.Attr("action", data.LoginPath)
		hw.Attr("hx-post", data.LoginPath)
		hw.Attr("hx-target", "#"+panelID)
		hw.Raw(` hx-swap="outerHTML" hx-disabled-elt="find button[type=submit]" novalidate>`)

		hw.Raw(`<input type="hidden" name="csrf_token"`)
		hw.Attr("value", data.CSRFToken)
		hw.Raw(`><input type="hidden" name="next"`)
		hw.Attr("value", data.Next)
		hw.Raw(">")

		hw.Raw(`<label for="email">Email</label><input id="email" name="email" type="email" autocomplete="username" data-clears-error`)
		hw.Attr("value", data.Email)
		hw.Raw(`><label for="password">Password</label><input id="password" name="password" type="password" autocomplete="current-password" data-clears-error`)
		hw.Raw(`><label class="checkbox"><input type="checkbox" name="remember" value="1"`)
		if data.Remember {
			hw.Raw(" checked")
		}
		hw.Raw(`> Remember me</label>`)
		hw.Raw(`<button type="submit" class="btn-primary">Sign in</button></form>`)
		hw.Raw(clearErrorScript)
		hw.Raw(`</section>`)
		return hw.Err()
	})
}

// LoginConfirmation renders the success document. Navigation replaces the
// current history entry so Back does not return to the login form.
func LoginConfirmation(data LoginConfirmationData) templ.Component {
	meta := layout.Meta{
		Title:          pageTitle,
		Environment:    data.Environment,
		Refresh:        true,
		RefreshSeconds: helpers.RefreshSeconds(data.Delay),
		RefreshURL:     data.Target,
	}
	return layout.Page(meta, LoginConfirmationPanel(data))
}

// LoginConfirmationPanel is the fragment variant of LoginConfirmation.
func LoginConfirmationPanel(data LoginConfirmationData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		delayMS := data.Delay.Milliseconds()
		if delayMS < 0 {
			delayMS = 0
		}

		hw := helpers.NewWriter(w)
		hw.Raw(`<section class="login-panel login-confirmation"`)
		hw.Attr("id", panelID)
		hw.Attr("data-redirect-target", data.Target)
		hw.Attr("data-redirect-delay-ms", strconv.FormatInt(delayMS, 10))
		hw.Raw(`><p class="notice notice-success" role="status">`)
		hw.Text(data.Message)
		hw.Raw(`</p><p class="hint"><a`)
		hw.Attr("href", data.Target)
		hw.Raw(`>Continue</a></p><script>setTimeout(function(){window.location.replace(`)
		hw.JSString(data.Target)
		hw.Rawf(`)},%d);</script></section>`, delayMS)
		return hw.Err()
	})
}

// Package public embeds the console's static assets.
package public

import (
	"embed"
	"io/fs"
	"net/http"
)

// Prefix is the URL path the assets are mounted under.
const Prefix = "/public/static/"

// Stylesheet is the URL of the console stylesheet.
const Stylesheet = Prefix + "admin.css"

//go:embed static/*
var static embed.FS

// StaticFS exposes the embedded static directory with the "static/" prefix
// stripped, so admin.css opens as "admin.css".
func StaticFS() (fs.FS, error) {
	return fs.Sub(static, "static")
}

// Handler serves StaticFS under Prefix. Assets ship inside the binary, so
// responses may be cached for a day.
func Handler() (http.Handler, error) {
	content, err := StaticFS()
	if err != nil {
		return nil, err
	}
	files := http.StripPrefix(Prefix, http.FileServer(http.FS(content)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	}), nil
}

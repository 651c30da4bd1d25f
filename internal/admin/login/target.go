package login

import (
	"net/url"
	"path"
	"strings"
)

// ResolveTarget picks where to send the user after signing in. next is the
// page the user was bounced from; it is honoured only when it is a
// same-origin path under basePath that is not the login page itself.
func ResolveTarget(basePath, loginPath, next string) string {
	if target := SanitizeNext(basePath, loginPath, next); target != "" {
		return target
	}
	return NormalizeBase(basePath)
}

// SanitizeNext returns the cleaned next target or "" when it must be ignored.
func SanitizeNext(basePath, loginPath, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "" || parsed.Host != "" || parsed.User != nil {
		return ""
	}

	pathValue := parsed.Path
	if pathValue == "" {
		pathValue = "/"
	}
	unescaped, err := url.PathUnescape(pathValue)
	if err != nil {
		return ""
	}
	if strings.Contains(unescaped, "\\") {
		return ""
	}

	cleaned := path.Clean(unescaped)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	if strings.HasPrefix(cleaned, "//") {
		return ""
	}

	base := NormalizeBase(basePath)
	if base != "/" && !hasPathPrefix(cleaned, base) {
		return ""
	}
	if loginPath != "" && cleaned == NormalizeBase(loginPath) {
		return ""
	}

	target := cleaned
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		target += "#" + parsed.Fragment
	}
	return target
}

// NormalizeBase returns base with a leading slash and no trailing slash.
func NormalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "/"
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if len(base) > 1 {
		base = strings.TrimRight(base, "/")
		if base == "" {
			return "/"
		}
	}
	return base
}

func hasPathPrefix(p, base string) bool {
	if !strings.HasPrefix(p, base) {
		return false
	}
	return len(p) == len(base) || p[len(base)] == '/'
}

package ui

import "strings"

// joinBasePath appends suffix to the console base path. An empty base
// yields the suffix as a root path.
func joinBasePath(basePath, suffix string) string {
	base := strings.TrimSpace(basePath)
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	if base == "" || base == "/" {
		return suffix
	}
	return strings.TrimRight(base, "/") + suffix
}

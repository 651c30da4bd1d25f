package helpers

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/a-h/templ"
)

// Date formats the timestamp in the provided layout (defaults to 2006-01-02 15:04 MST).
func Date(ts time.Time, layout string) string {
	if ts.IsZero() {
		return ""
	}
	if layout == "" {
		layout = "2006-01-02 15:04 MST"
	}
	return ts.In(time.Local).Format(layout)
}

// Until returns a coarse "in 3h" string for a future timestamp relative to now.
func Until(ts, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	diff := ts.Sub(now)
	switch {
	case diff <= 0:
		return "expired"
	case diff < time.Minute:
		return "in under a minute"
	case diff < time.Hour:
		return fmt.Sprintf("in %dm", int(diff.Minutes()))
	case diff < 48*time.Hour:
		return fmt.Sprintf("in %dh", int(diff.Hours()))
	default:
		return fmt.Sprintf("in %dd", int(diff.Hours()/24))
	}
}

// RefreshSeconds converts a redirect delay into the whole seconds used by a
// meta refresh. Positive sub-second delays round up to one second.
func RefreshSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// BadgeClass maps semantic tones to badge classes.
func BadgeClass(tone string) string {
	switch tone {
	case "success":
		return "badge badge-success"
	case "warning":
		return "badge badge-warning"
	case "danger":
		return "badge badge-danger"
	default:
		return "badge"
	}
}

// TextComponent returns a templ component that renders escaped text.
func TextComponent(value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(value))
		return err
	})
}

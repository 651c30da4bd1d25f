package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the login screen.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Focused lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Hint    lipgloss.Style
	Spinner lipgloss.Style
}

// DefaultStyles returns the adaptive palette used when no theme is configured.
func DefaultStyles() Styles {
	accent := lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#A79BFF"}
	muted := lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginBottom(1),
		Label:   lipgloss.NewStyle().Width(10).Foreground(muted),
		Focused: lipgloss.NewStyle().Width(10).Foreground(accent).Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF6B6B"}),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1B7F3B", Dark: "#5EDC8A"}),
		Hint:    lipgloss.NewStyle().Foreground(muted).MarginTop(1),
		Spinner: lipgloss.NewStyle().Foreground(accent),
	}
}

// Package watch implements the lingua system watch TUI: a live view of query
// requests grouped by correlation id, fed by the /meta/events stream.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the watch TUI.
type Theme struct {
	Completed lipgloss.Style
	Executing lipgloss.Style
	Failed    lipgloss.Style
	Rejected  lipgloss.Style

	Border    lipgloss.Style
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	PulseActive   lipgloss.Style
	PulseInactive lipgloss.Style
}

func NewDefaultTheme() Theme {
	accent := lipgloss.Color("#5FAFD7")

	return Theme{
		Completed: lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")),
		Executing: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")),
		Failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
		Rejected:  lipgloss.NewStyle().Foreground(lipgloss.Color("#D787AF")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A")),
		Highlight: lipgloss.NewStyle().Foreground(accent),

		PulseActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")),
		PulseInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}

// Subject returns the style for a lifecycle subject.
func (t Theme) Subject(subject string) lipgloss.Style {
	switch subject {
	case "completed":
		return t.Completed
	case "failed":
		return t.Failed
	case "rejected":
		return t.Rejected
	case "accepted", "executed":
		return t.Executing
	default:
		return t.Dim
	}
}

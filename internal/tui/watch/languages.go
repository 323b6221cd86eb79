package watch

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/lingua/internal/events"
)

// LanguageStats are request totals for one query language.
type LanguageStats struct {
	Name      string
	Received  int
	Active    int
	Completed int
	Failed    int
	Rejected  int
}

func (s *LanguageStats) finish(subject events.Subject) {
	switch subject {
	case events.Completed:
		s.Completed++
	case events.Failed:
		s.Failed++
	case events.Rejected:
		s.Rejected++
	}
}

// Languages returns per-language totals sorted by name.
func (t *Tracker) Languages() []LanguageStats {
	out := make([]LanguageStats, 0, len(t.languages))
	for _, s := range t.languages {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func renderLanguages(stats []LanguageStats, theme Theme, width int) string {
	innerWidth := width - 4

	if len(stats) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("LANGUAGES"),
			theme.Dim.Render("  No requests yet..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	lines := []string{theme.Title.Render("LANGUAGES")}
	for _, s := range stats {
		lines = append(lines, fmt.Sprintf(" %-8s %s  %s  %s  %s",
			s.Name,
			theme.Executing.Render(fmt.Sprintf("%3d active", s.Active)),
			theme.Completed.Render(fmt.Sprintf("%4d ok", s.Completed)),
			theme.Failed.Render(fmt.Sprintf("%4d failed", s.Failed)),
			theme.Rejected.Render(fmt.Sprintf("%4d rejected", s.Rejected)),
		))
	}
	return theme.Border.Width(innerWidth).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/lingua/internal/events"
)

const eventLogSize = 50

func renderEventStream(eventLog []events.Event, theme Theme, width, rows int) string {
	innerWidth := width - 4

	if len(eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EVENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range eventLog {
		if i >= rows {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EVENT STREAM"),
		eventsText,
	)
	return theme.Border.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	var lc events.Lifecycle
	if e.Type != events.TypeRequest || json.Unmarshal(e.Data, &lc) != nil {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return fmt.Sprintf("%s %-10s %s", ts, e.Type, raw)
	}

	subject := theme.Subject(string(lc.Subject)).Render(fmt.Sprintf("%-10s", lc.Subject))
	desc := fmt.Sprintf("[%s] %s", shortID(lc.Correlation), lc.Language)
	if lc.Principal != "" {
		desc += " " + lc.Principal
	}
	if lc.Code != "" {
		desc += " " + theme.Failed.Render(lc.Code)
	}
	return fmt.Sprintf("%s %s %s", ts, subject, desc)
}

package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// HealthState tracks gateway health from /healthz polling.
type HealthState struct {
	Status        string
	UptimeSeconds int64
	Running       int
	Waiting       int
	Capacity      int
	Languages     []string
	Connected     bool
	LastCheck     time.Time
}

func renderHeader(health HealthState, pulse Pulse, theme Theme, width int, now time.Time) string {
	innerWidth := width - 4

	statusText := theme.Completed.Render("HEALTHY")
	if !health.Connected {
		statusText = theme.Failed.Render("CONNECTING")
	} else if health.Status != "ok" && health.Status != "" {
		statusText = theme.Failed.Render("DEGRADED")
	}

	clock := theme.Dim.Render(now.Format("15:04:05"))
	titleText := " LINGUA WATCH"
	pad := max(1, innerWidth-lipgloss.Width(titleText)-lipgloss.Width(clock)-4)
	titleLine := titleText + strings.Repeat(" ", pad) + clock + " "

	statsLine := fmt.Sprintf(" %s  up %s  pool %s  languages: %s",
		statusText,
		formatDuration(time.Duration(health.UptimeSeconds)*time.Second),
		renderPool(health, theme),
		strings.Join(health.Languages, ", "),
	)

	lastEvent := "never"
	if !pulse.LastEvent().IsZero() {
		lastEvent = fmt.Sprintf("%s ago", now.Sub(pulse.LastEvent()).Round(time.Second))
	}
	activityLine := fmt.Sprintf(" Last event: %s %s", lastEvent, pulse.Render(theme))

	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, statsLine, activityLine)
	return theme.Border.Width(innerWidth).Render(content)
}

// renderPool shows running/capacity, with waiting work called out.
func renderPool(h HealthState, theme Theme) string {
	s := fmt.Sprintf("%d/%d", h.Running, h.Capacity)
	style := theme.Completed
	switch {
	case h.Capacity > 0 && h.Running+h.Waiting >= h.Capacity:
		style = theme.Failed
	case h.Waiting > 0:
		style = theme.Executing
	}
	if h.Waiting > 0 {
		s += fmt.Sprintf(" (+%d waiting)", h.Waiting)
	}
	return style.Render(s)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

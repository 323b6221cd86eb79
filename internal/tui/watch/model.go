package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/lingua/internal/events"
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.Up, k.Down, k.Quit} }

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	token  string

	width  int
	height int

	health   HealthState
	tracker  *Tracker
	eventLog []events.Event
	lastID   int64
	pulse    Pulse

	theme    Theme
	requests table.Model
	help     help.Model

	hubEvents chan events.Event

	lastError string
}

// New creates a watch model for the gateway at apiURL. token must hold the
// administrate permission to read the event stream.
func New(apiURL, token string) *Model {
	t := table.New(
		table.WithColumns(requestColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("24"))
	t.SetStyles(s)

	return &Model{
		apiURL:    apiURL,
		token:     token,
		tracker:   NewTracker(200),
		eventLog:  make([]events.Event, 0, eventLogSize),
		theme:     NewDefaultTheme(),
		requests:  t,
		help:      help.New(),
		hubEvents: make(chan events.Event, 100),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.apiURL, m.token, 0, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchHealth(m.apiURL, m.token) },
		tick(),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.requests, cmd = m.requests.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.requests.SetColumns(requestColumns(msg.Width))
		m.requests.SetHeight(max(5, msg.Height/3))

	case tickMsg:
		now := time.Time(msg)
		m.pulse.Decay(now)
		m.requests.SetRows(requestRows(m.tracker.Requests(), now))
		return m, tick()

	case eventMsg:
		e := events.Event(msg)
		m.apply(e)
		return m, receiveNextEvent(m.hubEvents)

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.Running = msg.Pool.Running
		m.health.Waiting = msg.Pool.Waiting
		m.health.Capacity = msg.Pool.Capacity
		m.health.Languages = msg.Languages
		m.health.LastCheck = time.Now()
		m.lastError = ""

		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.token)
		})

	case sseDisconnectedMsg:
		m.health.Connected = false
		m.lastError = "event stream disconnected, reconnecting..."
		if msg.err != nil {
			m.lastError = fmt.Sprintf("event stream: %v, reconnecting...", msg.err)
		}
		// The pending receiveNextEvent keeps reading the same channel, so
		// the new subscription only has to resume after the last id seen.
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg { return reconnectMsg{} })

	case reconnectMsg:
		return m, subscribeToEvents(m.apiURL, m.token, m.lastID, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.token)
		})
	}

	return m, nil
}

// apply records one streamed event.
func (m *Model) apply(e events.Event) {
	if e.ID > m.lastID {
		m.lastID = e.ID
	}
	m.eventLog = append([]events.Event{e}, m.eventLog...)
	if len(m.eventLog) > eventLogSize {
		m.eventLog = m.eventLog[:eventLogSize]
	}
	m.pulse.OnEvent(time.Now())
	m.health.Connected = true
	m.lastError = ""

	if _, ok := m.tracker.Apply(e); ok {
		m.requests.SetRows(requestRows(m.tracker.Requests(), time.Now()))
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting..."
	}

	header := renderHeader(m.health, m.pulse, m.theme, m.width, time.Now())
	requests := m.theme.Border.Width(m.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("REQUESTS"),
		m.requests.View(),
	))
	languages := renderLanguages(m.tracker.Languages(), m.theme, m.width)
	eventStream := renderEventStream(m.eventLog, m.theme, m.width, 10)

	parts := []string{header, requests, languages, eventStream}
	if m.lastError != "" {
		parts = append(parts, m.theme.Failed.Render(" ⚠ "+m.lastError))
	}
	parts = append(parts, m.help.View(keys))

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

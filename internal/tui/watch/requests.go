package watch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"

	"github.com/mattjoyce/lingua/internal/events"
)

// RequestState is one query request assembled from its lifecycle events.
type RequestState struct {
	Correlation string
	Language    string
	Schema      string
	Principal   string
	Subjects    []events.Subject
	Code        string
	Error       string
	Received    time.Time
	Finished    time.Time

	active bool
}

// Status is the latest subject seen for the request.
func (r *RequestState) Status() events.Subject {
	if len(r.Subjects) == 0 {
		return ""
	}
	return r.Subjects[len(r.Subjects)-1]
}

func (r *RequestState) Done() bool { return r.Status().Terminal() }

// Duration is the time from receipt to the terminal event, or to now while
// the request is still running.
func (r *RequestState) Duration(now time.Time) time.Duration {
	if r.Received.IsZero() {
		return 0
	}
	if r.Done() {
		return r.Finished.Sub(r.Received)
	}
	return now.Sub(r.Received)
}

// Tracker groups request events by correlation id and keeps per-language
// totals. It retains the most recent limit requests.
type Tracker struct {
	limit     int
	requests  map[string]*RequestState
	order     []string // newest first
	languages map[string]*LanguageStats
}

func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = 100
	}
	return &Tracker{
		limit:     limit,
		requests:  make(map[string]*RequestState),
		languages: make(map[string]*LanguageStats),
	}
}

// Apply folds e into the tracked state. It reports false for events that
// are not request lifecycle events.
func (t *Tracker) Apply(e events.Event) (*RequestState, bool) {
	if e.Type != events.TypeRequest {
		return nil, false
	}
	var lc events.Lifecycle
	if err := json.Unmarshal(e.Data, &lc); err != nil || lc.Correlation == "" {
		return nil, false
	}

	req, ok := t.requests[lc.Correlation]
	if !ok {
		req = &RequestState{
			Correlation: lc.Correlation,
			Language:    lc.Language,
			Schema:      lc.Schema,
			Principal:   lc.Principal,
		}
		t.insert(req)
	}
	if req.Done() {
		return req, true
	}
	req.Subjects = append(req.Subjects, lc.Subject)

	stats := t.language(lc.Language)
	switch {
	case lc.Subject == events.Received:
		req.Received = e.At
		req.active = true
		stats.Received++
		stats.Active++
	case lc.Subject.Terminal():
		req.Finished = e.At
		req.Code = lc.Code
		req.Error = lc.Error
		if req.active {
			req.active = false
			stats.Active--
		}
		stats.finish(lc.Subject)
	}
	return req, true
}

func (t *Tracker) insert(req *RequestState) {
	t.requests[req.Correlation] = req
	t.order = append([]string{req.Correlation}, t.order...)
	for len(t.order) > t.limit {
		oldest := t.order[len(t.order)-1]
		t.order = t.order[:len(t.order)-1]
		if r := t.requests[oldest]; r != nil && r.active {
			t.language(r.Language).Active--
		}
		delete(t.requests, oldest)
	}
}

func (t *Tracker) language(name string) *LanguageStats {
	s, ok := t.languages[name]
	if !ok {
		s = &LanguageStats{Name: name}
		t.languages[name] = s
	}
	return s
}

// Requests returns tracked requests, newest first.
func (t *Tracker) Requests() []*RequestState {
	out := make([]*RequestState, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.requests[id])
	}
	return out
}

// Get returns the request with the given correlation id.
func (t *Tracker) Get(correlation string) (*RequestState, bool) {
	r, ok := t.requests[correlation]
	return r, ok
}

func requestColumns(width int) []table.Column {
	principal := max(12, width-4-10-8-12-20-10-12)
	return []table.Column{
		{Title: "Request", Width: 10},
		{Title: "Lang", Width: 8},
		{Title: "Principal", Width: principal},
		{Title: "Status", Width: 12},
		{Title: "Code", Width: 20},
		{Title: "Time", Width: 10},
	}
}

func requestRows(reqs []*RequestState, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, table.Row{
			shortID(r.Correlation),
			r.Language,
			r.Principal,
			string(r.Status()),
			r.Code,
			formatElapsed(r.Duration(now)),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

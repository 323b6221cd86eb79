// Package journal keeps a sqlite record of each request's final outcome,
// fed from the event hub.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/log"
)

// ErrNotFound is returned by Get for unknown correlation ids.
var ErrNotFound = errors.New("request not found")

const maxPending = 4096

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one finished request.
type Entry struct {
	Correlation string    `json:"correlation"`
	Language    string    `json:"language"`
	Schema      string    `json:"schema"`
	Principal   string    `json:"principal"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMS  int64     `json:"duration_ms"`
}

type started struct {
	at        time.Time
	timestamp int64
}

type Journal struct {
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]started
}

func New(db *sql.DB) *Journal {
	return &Journal{
		db:      db,
		logger:  log.WithComponent("journal"),
		pending: make(map[string]started),
	}
}

// Run records request events from ch until it is closed or ctx is done.
func (j *Journal) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := j.Record(ctx, ev); err != nil {
				j.logger.Warn("journal record failed", "event_id", ev.ID, "error", err)
			}
		}
	}
}

// Record consumes one hub event. Only terminal request events are written.
func (j *Journal) Record(ctx context.Context, ev events.Event) error {
	if ev.Type != events.TypeRequest {
		return nil
	}
	var lc events.Lifecycle
	if err := json.Unmarshal(ev.Data, &lc); err != nil {
		return fmt.Errorf("decode lifecycle: %w", err)
	}

	if lc.Subject == events.Received {
		j.mu.Lock()
		if len(j.pending) < maxPending {
			j.pending[lc.Correlation] = started{at: ev.At, timestamp: lc.Timestamp}
		}
		j.mu.Unlock()
		return nil
	}
	if !lc.Subject.Terminal() {
		return nil
	}

	j.mu.Lock()
	begin, ok := j.pending[lc.Correlation]
	delete(j.pending, lc.Correlation)
	j.mu.Unlock()
	if !ok {
		begin = started{at: ev.At, timestamp: lc.Timestamp}
	}

	entry := Entry{
		Correlation: lc.Correlation,
		Language:    lc.Language,
		Schema:      lc.Schema,
		Principal:   lc.Principal,
		Outcome:     string(lc.Subject),
		Error:       lc.Error,
		ReceivedAt:  begin.at.UTC(),
		FinishedAt:  ev.At.UTC(),
		DurationMS:  (lc.Timestamp - begin.timestamp) / 1000,
	}
	return j.insert(ctx, entry)
}

func (j *Journal) insert(ctx context.Context, e Entry) error {
	var errText any
	if e.Error != "" {
		errText = e.Error
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO request_log(correlation, language, schema_name, principal, outcome, error, received_at, finished_at, duration_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(correlation) DO NOTHING;
`, e.Correlation, e.Language, e.Schema, e.Principal, e.Outcome, errText,
		e.ReceivedAt.UTC().Format(timeLayout), e.FinishedAt.UTC().Format(timeLayout), e.DurationMS)
	if err != nil {
		return fmt.Errorf("insert request_log: %w", err)
	}
	return nil
}

const selectColumns = `correlation, language, schema_name, principal, outcome, error, received_at, finished_at, duration_ms`

// List returns the most recently finished requests, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM request_log ORDER BY finished_at DESC LIMIT ?;", limit)
	if err != nil {
		return nil, fmt.Errorf("list request_log: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list request_log: %w", err)
	}
	return out, nil
}

// Get returns the entry for correlation.
func (j *Journal) Get(ctx context.Context, correlation string) (Entry, error) {
	row := j.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM request_log WHERE correlation = ?;", correlation)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e                  Entry
		errText            sql.NullString
		received, finished string
	)
	err := s.Scan(&e.Correlation, &e.Language, &e.Schema, &e.Principal, &e.Outcome, &errText,
		&received, &finished, &e.DurationMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan request_log: %w", err)
	}
	e.Error = errText.String
	if e.ReceivedAt, err = time.Parse(timeLayout, received); err != nil {
		return Entry{}, fmt.Errorf("parse received_at: %w", err)
	}
	if e.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Entry{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return e, nil
}

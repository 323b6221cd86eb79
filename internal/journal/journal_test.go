package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/storage"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.BootstrapSQLite(ctx, db))
	return New(db)
}

func lifecycle(t *testing.T, at time.Time, lc events.Lifecycle) events.Event {
	t.Helper()
	data, err := json.Marshal(lc)
	require.NoError(t, err)
	return events.Event{Type: events.TypeRequest, At: at, Data: data}
}

func TestRecordTerminalOutcome(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := events.Lifecycle{Correlation: "c1", Language: "sql", Schema: "main", Principal: "ops"}

	steps := []struct {
		subject events.Subject
		offset  time.Duration
	}{
		{events.Received, 0},
		{events.Accepted, time.Millisecond},
		{events.Executed, 40 * time.Millisecond},
		{events.Completed, 42 * time.Millisecond},
	}
	for _, s := range steps {
		lc := base
		lc.Subject = s.subject
		lc.Timestamp = s.offset.Microseconds()
		require.NoError(t, j.Record(ctx, lifecycle(t, t0.Add(s.offset), lc)))
	}

	got, err := j.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Outcome)
	assert.Equal(t, "ops", got.Principal)
	assert.Empty(t, got.Error)
	assert.Equal(t, int64(42), got.DurationMS)
	assert.True(t, got.ReceivedAt.Equal(t0))
	assert.True(t, got.FinishedAt.Equal(t0.Add(42*time.Millisecond)))
}

func TestRecordRejectedWithoutReceived(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	lc := events.Lifecycle{Subject: events.Rejected, Correlation: "c2", Language: "sparql", Error: "forbidden", Code: "forbidden", Status: 403}
	require.NoError(t, j.Record(ctx, lifecycle(t, time.Now(), lc)))
	// A second terminal event for the same request is ignored.
	lc.Subject = events.Failed
	require.NoError(t, j.Record(ctx, lifecycle(t, time.Now(), lc)))

	got, err := j.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "rejected", got.Outcome)
	assert.Equal(t, "forbidden", got.Error)
	assert.Zero(t, got.DurationMS)
}

func TestRecordIgnoresOtherEvents(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, events.Event{Type: "stream", Data: json.RawMessage(`"subscribed"`)}))
	assert.Error(t, j.Record(ctx, events.Event{Type: events.TypeRequest, Data: json.RawMessage(`[`)}))

	list, err := j.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetUnknown(t *testing.T) {
	j := openJournal(t)
	_, err := j.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		lc := events.Lifecycle{Subject: events.Completed, Correlation: id, Language: "sql"}
		require.NoError(t, j.Record(ctx, lifecycle(t, t0.Add(time.Duration(i)*time.Second), lc)))
	}

	list, err := j.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Correlation)
	assert.Equal(t, "b", list[1].Correlation)
}

func TestRunConsumesHub(t *testing.T) {
	j := openJournal(t)
	hub := events.NewHub(64, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	go j.Run(ctx, ch)

	hub.Publish(events.TypeRequest, events.Lifecycle{Subject: events.Received, Correlation: "h1", Language: "sql"})
	hub.Publish(events.TypeRequest, events.Lifecycle{Subject: events.Failed, Correlation: "h1", Language: "sql", Error: "boom"})

	require.Eventually(t, func() bool {
		got, err := j.Get(ctx, "h1")
		return err == nil && got.Outcome == "failed"
	}, 2*time.Second, 10*time.Millisecond)
}

package inspect

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lingua/internal/journal"
)

type fakeStore struct {
	entries []journal.Entry
}

func (f *fakeStore) List(_ context.Context, limit int) ([]journal.Entry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func (f *fakeStore) Get(_ context.Context, correlation string) (journal.Entry, error) {
	for _, e := range f.entries {
		if e.Correlation == correlation {
			return e, nil
		}
	}
	return journal.Entry{}, journal.ErrNotFound
}

func entry(corr, lang, outcome string, ms int64) journal.Entry {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return journal.Entry{
		Correlation: corr,
		Language:    lang,
		Schema:      "main",
		Principal:   "alice",
		Outcome:     outcome,
		ReceivedAt:  at,
		FinishedAt:  at.Add(time.Duration(ms) * time.Millisecond),
		DurationMS:  ms,
	}
}

func store() *fakeStore {
	failed := entry("c3", "sql", "failed", 40)
	failed.Error = "execution timed out"
	return &fakeStore{entries: []journal.Entry{
		entry("c1", "sql", "completed", 12),
		entry("c2", "sparql", "rejected", 0),
		failed,
	}}
}

func TestBuildReport(t *testing.T) {
	out, err := BuildReport(context.Background(), store(), "c3")
	require.NoError(t, err)
	assert.Contains(t, out, "Correlation : c3\n")
	assert.Contains(t, out, "Outcome     : failed\n")
	assert.Contains(t, out, "Duration    : 40ms\n")
	assert.Contains(t, out, "Error       : execution timed out\n")

	out, err = BuildReport(context.Background(), store(), "c1")
	require.NoError(t, err)
	assert.NotContains(t, out, "Error")
}

func TestBuildReportNotFound(t *testing.T) {
	_, err := BuildReport(context.Background(), store(), "nope")
	assert.ErrorIs(t, err, journal.ErrNotFound)

	_, err = BuildJSONReport(context.Background(), store(), "nope")
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestBuildJSONReport(t *testing.T) {
	data, err := BuildJSONReport(context.Background(), store(), "c2")
	require.NoError(t, err)

	var got journal.Entry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "sparql", got.Language)
	assert.Equal(t, "rejected", got.Outcome)
}

func TestGatherSummarises(t *testing.T) {
	l, err := Gather(context.Background(), store(), 10)
	require.NoError(t, err)
	require.Len(t, l.Requests, 3)
	assert.Equal(t, []Summary{
		{Language: "sparql", Total: 1, Rejected: 1},
		{Language: "sql", Total: 2, Completed: 1, Failed: 1, MaxMS: 40},
	}, l.Summary)

	out := FormatListing(l)
	assert.Contains(t, out, "CORRELATION")
	assert.Contains(t, out, "sql: 2 total, 1 completed, 1 failed, 0 rejected, max 40ms\n")
}

func TestFormatListingEmpty(t *testing.T) {
	l, err := Gather(context.Background(), &fakeStore{}, 10)
	require.NoError(t, err)
	assert.Equal(t, "No requests recorded.\n", FormatListing(l))
}

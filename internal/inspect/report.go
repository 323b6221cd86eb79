// Package inspect renders request journal entries for the terminal.
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattjoyce/lingua/internal/journal"
)

// Store is the read side of the request journal.
type Store interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
	Get(ctx context.Context, correlation string) (journal.Entry, error)
}

// Summary aggregates outcomes per language over a listing.
type Summary struct {
	Language  string `json:"language"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Rejected  int    `json:"rejected"`
	MaxMS     int64  `json:"max_duration_ms"`
}

// Listing is the structured form of a recent-requests report.
type Listing struct {
	Requests []journal.Entry `json:"requests"`
	Summary  []Summary       `json:"summary"`
}

// BuildReport renders the journal entry for one request.
func BuildReport(ctx context.Context, store Store, correlation string) (string, error) {
	e, err := store.Get(ctx, correlation)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", correlation, err)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Request Report\n")
	fmt.Fprintf(&out, "Correlation : %s\n", e.Correlation)
	fmt.Fprintf(&out, "Language    : %s\n", e.Language)
	fmt.Fprintf(&out, "Schema      : %s\n", e.Schema)
	fmt.Fprintf(&out, "Principal   : %s\n", e.Principal)
	fmt.Fprintf(&out, "Outcome     : %s\n", e.Outcome)
	fmt.Fprintf(&out, "Received    : %s\n", e.ReceivedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(&out, "Finished    : %s\n", e.FinishedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(&out, "Duration    : %dms\n", e.DurationMS)
	if e.Error != "" {
		fmt.Fprintf(&out, "Error       : %s\n", e.Error)
	}
	return out.String(), nil
}

// BuildJSONReport returns the entry for one request as indented JSON.
func BuildJSONReport(ctx context.Context, store Store, correlation string) ([]byte, error) {
	e, err := store.Get(ctx, correlation)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", correlation, err)
	}
	return json.MarshalIndent(e, "", "  ")
}

// Gather loads up to limit recent entries and summarises them.
func Gather(ctx context.Context, store Store, limit int) (*Listing, error) {
	entries, err := store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &Listing{Requests: entries, Summary: summarise(entries)}, nil
}

func summarise(entries []journal.Entry) []Summary {
	byLang := map[string]*Summary{}
	for _, e := range entries {
		s, ok := byLang[e.Language]
		if !ok {
			s = &Summary{Language: e.Language}
			byLang[e.Language] = s
		}
		s.Total++
		switch e.Outcome {
		case "completed":
			s.Completed++
		case "failed":
			s.Failed++
		case "rejected":
			s.Rejected++
		}
		if e.DurationMS > s.MaxMS {
			s.MaxMS = e.DurationMS
		}
	}

	out := make([]Summary, 0, len(byLang))
	for _, s := range byLang {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out
}

// FormatListing renders a listing as aligned text, newest request first.
func FormatListing(l *Listing) string {
	if len(l.Requests) == 0 {
		return "No requests recorded.\n"
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%-36s  %-8s  %-10s  %-12s  %8s  %s\n", "CORRELATION", "LANGUAGE", "OUTCOME", "PRINCIPAL", "MS", "FINISHED")
	for _, e := range l.Requests {
		fmt.Fprintf(&out, "%-36s  %-8s  %-10s  %-12s  %8d  %s\n",
			e.Correlation, e.Language, e.Outcome, e.Principal, e.DurationMS, e.FinishedAt.Format(time.RFC3339))
	}
	out.WriteString("\n")
	for _, s := range l.Summary {
		fmt.Fprintf(&out, "%s: %d total, %d completed, %d failed, %d rejected, max %dms\n",
			s.Language, s.Total, s.Completed, s.Failed, s.Rejected, s.MaxMS)
	}
	return out.String()
}

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decode(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestSetupWriterHonoursLevel(t *testing.T) {
	reset()
	t.Cleanup(reset)

	var buf bytes.Buffer
	SetupWriter("warn", &buf)
	Get().Info("dropped")
	Get().Warn("kept")

	recs := decode(t, &buf)
	if len(recs) != 1 || recs[0]["msg"] != "kept" {
		t.Fatalf("records = %v, want only 'kept'", recs)
	}
}

func TestSetupWriterFirstCallWins(t *testing.T) {
	reset()
	t.Cleanup(reset)

	var first, second bytes.Buffer
	SetupWriter("info", &first)
	SetupWriter("debug", &second)
	Get().Info("hello")

	if second.Len() != 0 {
		t.Fatalf("second writer received %q", second.String())
	}
	if len(decode(t, &first)) != 1 {
		t.Fatalf("first writer got %q", first.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":  slog.LevelDebug,
		"WARN":   slog.LevelWarn,
		" error": slog.LevelError,
		"info":   slog.LevelInfo,
		"bogus":  slog.LevelInfo,
		"":       slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentAndRequestAttributes(t *testing.T) {
	reset()
	t.Cleanup(reset)

	var buf bytes.Buffer
	SetupWriter("info", &buf)
	ForRequest(WithComponent("protocol"), "c-123").Info("request msg")

	recs := decode(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0]["component"] != "protocol" {
		t.Errorf("component = %v", recs[0]["component"])
	}
	if recs[0][KeyCorrelation] != "c-123" {
		t.Errorf("%s = %v", KeyCorrelation, recs[0][KeyCorrelation])
	}
}

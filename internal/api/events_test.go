package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lingua/internal/events"
)

// readFrame returns the fields of the next SSE frame, skipping comments.
func readFrame(t *testing.T, r *bufio.Reader) map[string]string {
	t.Helper()
	frame := map[string]string{}
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if len(frame) > 0 {
				return frame
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		key, value, _ := strings.Cut(line, ": ")
		frame[key] = value
	}
}

func startHub(t *testing.T) *events.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := events.NewHub(16, 16)
	hub.Start(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Close()
	})
	return hub
}

func openStream(t *testing.T, url string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url+"/meta/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer admin-token")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestEventStreamReplaysThenFollows(t *testing.T) {
	hub := startHub(t)
	hub.Publish(events.TypeRequest, map[string]int{"n": 1})
	require.Eventually(t, func() bool { return len(hub.SnapshotSince(0)) == 1 }, time.Second, 5*time.Millisecond)

	srv, _ := newTestServer(t, Config{}, Deps{Events: hub})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := openStream(t, ts.URL, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, map[string]string{"event": "stream", "data": `"subscribed"`}, readFrame(t, r))
	assert.Equal(t, map[string]string{"id": "1", "event": "request", "data": `{"n":1}`}, readFrame(t, r))

	hub.Publish(events.TypeRequest, map[string]int{"n": 2})
	assert.Equal(t, map[string]string{"id": "2", "event": "request", "data": `{"n":2}`}, readFrame(t, r))
}

func TestEventStreamResumesAfterLastEventID(t *testing.T) {
	hub := startHub(t)
	for i := 0; i < 3; i++ {
		hub.Publish(events.TypeRequest, map[string]int{"n": i})
	}
	require.Eventually(t, func() bool { return len(hub.SnapshotSince(0)) == 3 }, time.Second, 5*time.Millisecond)

	srv, _ := newTestServer(t, Config{}, Deps{Events: hub})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := openStream(t, ts.URL, map[string]string{"Last-Event-ID": "2"})
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, "stream", readFrame(t, r)["event"])
	assert.Equal(t, "3", readFrame(t, r)["id"])
}

func TestEventStreamKeepAlive(t *testing.T) {
	hub := startHub(t)
	srv, _ := newTestServer(t, Config{}, Deps{Events: hub})
	srv.keepAlive = 10 * time.Millisecond
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := openStream(t, ts.URL, nil)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == ": keep-alive\n" {
			return
		}
	}
}

func TestEventStreamRequiresAdministrate(t *testing.T) {
	srv, _ := newTestServer(t, Config{}, Deps{Events: startHub(t)})
	rr := do(t, srv.Handler(), http.MethodGet, "/meta/events", "user-token")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestParseLastEventID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"42", 42},
		{"-1", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLastEventID(tt.in), tt.in)
	}
}

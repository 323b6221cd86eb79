package watch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/lingua/internal/events"
)

// streamEventType marks the greeting frame sent when a subscription opens.
const streamEventType = "stream"

type eventMsg events.Event

type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Pool          struct {
		Running  int `json:"running"`
		Waiting  int `json:"waiting"`
		Capacity int `json:"capacity"`
	} `json:"pool"`
	Languages []string `json:"languages"`
}

type tickMsg time.Time

type errMsg error

type sseDisconnectedMsg struct{ err error }
type reconnectMsg struct{}

// subscribeToEvents connects to /meta/events and feeds events into ch until
// the connection drops.
func subscribeToEvents(apiURL, token string, lastID int64, ch chan<- events.Event) tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequest(http.MethodGet, apiURL+"/meta/events", nil)
		if err != nil {
			return errMsg(err)
		}
		authorize(req, token)
		if lastID > 0 {
			req.Header.Set("Last-Event-ID", strconv.FormatInt(lastID, 10))
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return sseDisconnectedMsg{err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return sseDisconnectedMsg{err: fmt.Errorf("event stream: %s", resp.Status)}
		}

		return sseDisconnectedMsg{err: readStream(resp.Body, ch)}
	}
}

// readStream parses server-sent event frames from r. The greeting frame is
// not forwarded.
func readStream(r io.Reader, ch chan<- events.Event) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var cur events.Event
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 && cur.Type != streamEventType {
				cur.At = time.Now()
				cur.Data = json.RawMessage(data.String())
				ch <- cur
			}
			cur = events.Event{}
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// keep-alive
		case strings.HasPrefix(line, "id: "):
			if id, err := strconv.ParseInt(line[4:], 10, 64); err == nil {
				cur.ID = id
			}
		case strings.HasPrefix(line, "event: "):
			cur.Type = line[7:]
		case strings.HasPrefix(line, "data: "):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(line[6:])
		}
	}
	return scanner.Err()
}

// receiveNextEvent waits for the next event from the channel.
func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

// fetchHealth queries the /healthz endpoint.
func fetchHealth(apiURL, token string) tea.Msg {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, apiURL+"/healthz", nil)
	if err != nil {
		return errMsg(err)
	}
	authorize(req, token)

	resp, err := client.Do(req)
	if err != nil {
		return errMsg(err)
	}
	defer resp.Body.Close()

	var h healthMsg
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return errMsg(err)
	}
	return h
}

func authorize(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

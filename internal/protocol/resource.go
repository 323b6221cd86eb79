// Package protocol drives one HTTP request through the query pipeline: it
// builds the command, hands it to a connector, suspends until the stream
// resolves, and writes either the results or the mapped error.
package protocol

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/fault"
	"github.com/mattjoyce/lingua/internal/invoke"
	"github.com/mattjoyce/lingua/internal/log"
)

// HeaderCorrelation carries the id shared by a request's lifecycle events.
const HeaderCorrelation = "X-Correlation-ID"

const defaultMaxBody = 1 << 20

const formContentType = "application/x-www-form-urlencoded"

// Resource serves query requests for any language.
type Resource struct {
	connector invoke.Connector
	schema    string
	timeout   time.Duration
	maxBody   int64
	logger    *slog.Logger
}

// NewResource returns a resource submitting commands for schema to
// connector. A zero timeout disables the response deadline.
func NewResource(connector invoke.Connector, schema string, timeout time.Duration) *Resource {
	return &Resource{
		connector: connector,
		schema:    schema,
		timeout:   timeout,
		maxBody:   defaultMaxBody,
		logger:    log.WithComponent("protocol"),
	}
}

// WithMaxBody limits the size of POST bodies.
func (r *Resource) WithMaxBody(n int64) *Resource {
	if n > 0 {
		r.maxBody = n
	}
	return r
}

// Serve handles one request for language. It returns once the response is
// written or the caller has disconnected.
func (r *Resource) Serve(w http.ResponseWriter, req *http.Request, language command.Language) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		WriteError(w, fault.MethodNotAllowed(req.Method))
		return
	}

	correlation := events.NewCorrelation()
	ctx := events.WithCorrelation(req.Context(), correlation)
	w.Header().Set(HeaderCorrelation, correlation)
	m := &machine{state: StateReceived, logger: log.ForRequest(r.logger, correlation)}

	m.to(StateValidating)
	cmd := r.command(req, language)
	stream, err := r.connector.Accept(ctx, cmd)
	if err != nil {
		m.to(StateRejected)
		m.fail(w, err)
		return
	}
	m.to(StateAccepted)

	// Completion, timeout and disconnect all funnel into the same
	// idempotent cancellation.
	async := NewAsyncResponse()
	async.Register(func(s State) {
		if s == StateTimedOut {
			stream.Abort(fault.Timeout())
			return
		}
		stream.Cancel()
	})
	async.OnDisconnect(stream.Cancel)
	async.SetTimeout(r.timeout, nil)

	m.to(StateExecuting)
	stream.Subscribe(func(res engine.Results, err error) {
		if !async.Resume(res, err) && res != nil {
			_ = res.Close()
		}
	})

	select {
	case <-async.Done():
	case <-req.Context().Done():
		async.Disconnect()
	}

	state, res, err := async.Outcome()
	m.to(state)
	switch state {
	case StateCompleted:
		m.write(w, res)
	case StateDisconnected:
	default:
		m.fail(w, err)
	}
}

func (r *Resource) command(req *http.Request, language command.Language) *command.Command {
	principal, _ := auth.PrincipalFromContext(req.Context())
	p := command.Parse(language).
		Schema(r.schema).
		Headers(req.Header).
		Caller(principal, req.Method)

	if req.Method == http.MethodGet {
		return p.Arguments(req.URL.RawQuery).Collect()
	}

	body, err := r.readBody(req)
	if err != nil {
		return command.Invalid(err)
	}
	contentType := req.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == formContentType {
		return p.Arguments(string(body)).Overrides(req.URL.RawQuery).Collect()
	}
	return p.Body(body, contentType).Overrides(req.URL.RawQuery).Collect()
}

// readBody returns nil when the request carried no body.
func (r *Resource) readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, r.maxBody+1))
	if err != nil {
		return nil, fault.BadRequest("read request body: %v", err)
	}
	if int64(len(body)) > r.maxBody {
		return nil, fault.BadRequest("request body exceeds %d bytes", r.maxBody)
	}
	if len(body) == 0 && req.ContentLength <= 0 && req.Header.Get("Content-Type") == "" {
		return nil, nil
	}
	return body, nil
}

// machine tracks and logs the transitions of one request.
type machine struct {
	state  State
	logger *slog.Logger
}

func (m *machine) to(next State) {
	if !CanTransition(m.state, next) {
		m.logger.Error("illegal protocol transition", "from", m.state.String(), "to", next.String())
	}
	m.logger.Debug("protocol transition", "from", m.state.String(), "to", next.String())
	m.state = next
}

func (m *machine) write(w http.ResponseWriter, res engine.Results) {
	defer func() {
		if err := res.Close(); err != nil {
			m.logger.Warn("release results", "error", err)
		}
	}()
	w.Header().Set("Content-Type", res.MediaType())
	w.WriteHeader(http.StatusOK)
	if err := res.Write(w); err != nil {
		// Headers are already sent; the failure is only observable in logs
		// and events.
		m.logger.Error("write results", "error", err)
	}
}

func (m *machine) fail(w http.ResponseWriter, err error) {
	fe := fault.Classify(err)
	if fault.IsRegular(err) {
		m.logger.Warn("request rejected", "state", m.state.String(), "code", fe.Code, "error", fe.Msg)
	} else {
		m.logger.Error("request failed", "state", m.state.String(), "code", fe.Code, "error", err)
	}
	WriteError(w, err)
}

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError writes err with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	fe := fault.Classify(err)
	msg := fe.Error()
	if fe.Kind == fault.KindFailure {
		// Backend detail stays in the logs.
		msg = fe.Msg
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(fe.Status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: msg, Code: fe.Code})
}

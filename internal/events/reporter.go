package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/fault"
	"github.com/mattjoyce/lingua/internal/log"
)

// TypeRequest is the hub event type of request lifecycle events.
const TypeRequest = "request"

// Subject names a lifecycle transition.
type Subject string

const (
	Received  Subject = "received"
	Accepted  Subject = "accepted"
	Rejected  Subject = "rejected"
	Executed  Subject = "executed"
	Completed Subject = "completed"
	Failed    Subject = "failed"
)

// Terminal reports whether no further events follow s for a request.
func (s Subject) Terminal() bool {
	return s == Rejected || s == Completed || s == Failed
}

// Lifecycle is the payload of a request event.
type Lifecycle struct {
	Subject     Subject `json:"subject"`
	Correlation string  `json:"correlation"`
	// Timestamp is microseconds since the reporter started, on the
	// monotonic clock.
	Timestamp int64  `json:"timestamp"`
	Language  string `json:"language"`
	Schema    string `json:"schema"`
	Principal string `json:"principal,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Status    int    `json:"status,omitempty"`
}

type correlationKey struct{}

// WithCorrelation attaches a correlation id for the reporter to reuse.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationFrom returns the correlation id attached to ctx, if any.
func CorrelationFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationKey{}).(string)
	return id, ok && id != ""
}

// NewCorrelation returns a fresh correlation id.
func NewCorrelation() string { return uuid.NewString() }

// Reporter emits lifecycle events for requests.
type Reporter struct {
	bus    Publisher
	epoch  time.Time
	logger *slog.Logger
}

func NewReporter(bus Publisher) *Reporter {
	return &Reporter{bus: bus, epoch: time.Now(), logger: log.WithComponent("events")}
}

// Begin opens the event scope of one request and emits received. The
// correlation id comes from ctx when present.
func (r *Reporter) Begin(ctx context.Context, cmd *command.Command) *Scope {
	id, ok := CorrelationFrom(ctx)
	if !ok {
		id = NewCorrelation()
	}
	s := &Scope{
		reporter:    r,
		correlation: id,
		language:    cmd.Language().String(),
		schema:      cmd.Schema(),
		principal:   cmd.Principal().Name,
	}
	s.emit(Received, nil)
	return s
}

func (r *Reporter) publish(ev Lifecycle) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("event publish panicked", "panic", v, "subject", ev.Subject)
		}
	}()
	ev.Timestamp = time.Since(r.epoch).Microseconds()
	r.bus.Publish(TypeRequest, ev)
}

// Scope emits the events of one request. At most one terminal event is
// emitted; later transitions are ignored.
type Scope struct {
	reporter    *Reporter
	correlation string
	language    string
	schema      string
	principal   string

	mu       sync.Mutex
	accepted bool
	terminal bool
}

func (s *Scope) Correlation() string { return s.correlation }

func (s *Scope) Accepted() { s.transition(Accepted, nil) }

func (s *Scope) Rejected(err error) { s.transition(Rejected, err) }

func (s *Scope) Executed() { s.transition(Executed, nil) }

func (s *Scope) Completed() { s.transition(Completed, nil) }

func (s *Scope) Failed(err error) { s.transition(Failed, err) }

func (s *Scope) transition(subject Subject, err error) {
	s.mu.Lock()
	switch {
	case s.terminal:
		s.mu.Unlock()
		return
	case subject == Rejected && s.accepted:
		subject = Failed
	case (subject == Executed || subject == Completed) && !s.accepted:
		s.mu.Unlock()
		return
	}
	if subject == Accepted {
		s.accepted = true
	}
	if subject.Terminal() {
		s.terminal = true
	}
	s.mu.Unlock()

	s.emit(subject, err)
}

func (s *Scope) emit(subject Subject, err error) {
	ev := Lifecycle{
		Subject:     subject,
		Correlation: s.correlation,
		Language:    s.language,
		Schema:      s.schema,
		Principal:   s.principal,
	}
	if err != nil {
		fe := fault.Classify(err)
		ev.Error = err.Error()
		ev.Code = fe.Code
		ev.Status = fe.Status
	}
	s.reporter.publish(ev)
}

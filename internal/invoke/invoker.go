// Package invoke runs prepared invocations asynchronously under admission
// control and reports their single outcome through a Stream.
//
// Accept performs every synchronous step (validation, engine selection,
// preparation, authorization, admission) on the caller's goroutine and
// returns the first error unchanged. Once admitted, the Invocation executes
// on a scheduler worker and the Stream completes exactly once.
package invoke

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/log"
)

const tracerName = "github.com/mattjoyce/lingua/internal/invoke"

// Stream is the pending outcome of one accepted command.
type Stream interface {
	// Subscribe registers a continuation for the outcome. Subscribing again
	// never re-executes the invocation.
	Subscribe(fn func(engine.Results, error))
	// Cancel abandons the stream. Idempotent.
	Cancel()
	// Abort is Cancel with the error the stream completes with.
	Abort(cause error)
	Done() <-chan struct{}
}

// Connector accepts commands for execution.
type Connector interface {
	Accept(ctx context.Context, cmd *command.Command) (Stream, error)
}

// Invoker is the Connector backed by the engine router and a scheduler.
type Invoker struct {
	router     *engine.Router
	authorizer auth.Authorizer
	scheduler  *Scheduler
	timeout    time.Duration
	tracer     trace.Tracer
	logger     *slog.Logger
}

// New creates an invoker. timeout bounds each execution; zero disables it.
func New(router *engine.Router, authorizer auth.Authorizer, scheduler *Scheduler, timeout time.Duration) *Invoker {
	return &Invoker{
		router:     router,
		authorizer: authorizer,
		scheduler:  scheduler,
		timeout:    timeout,
		tracer:     otel.Tracer(tracerName),
		logger:     log.WithComponent("invoke"),
	}
}

func (i *Invoker) Accept(ctx context.Context, cmd *command.Command) (Stream, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	eng, err := i.router.Select(cmd)
	if err != nil {
		return nil, err
	}
	inv, err := eng.Prepare(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := i.authorizer.Check(inv, cmd.Principal().Role, cmd.Method()); err != nil {
		inv.Cancel()
		return nil, err
	}

	// The task outlives the request context; disconnects arrive as Cancel.
	task := newTask(context.WithoutCancel(ctx), i.timeout, inv, cmd, i.tracer)
	if err := i.scheduler.Submit(task.run); err != nil {
		task.Cancel()
		i.logger.Warn("invocation not admitted", "language", cmd.Language(), "error", err)
		return nil, err
	}
	return task, nil
}

package invoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/fault"
)

// ErrDiscarded is reported when results are released without being written.
var ErrDiscarded = errors.New("results discarded before delivery")

// Eventful wraps delegate so that every accepted command produces its
// lifecycle events. Results, errors and timing of delegate are unchanged.
func Eventful(reporter *events.Reporter, delegate Connector) Connector {
	return &eventful{reporter: reporter, delegate: delegate}
}

type eventful struct {
	reporter *events.Reporter
	delegate Connector
}

func (e *eventful) Accept(ctx context.Context, cmd *command.Command) (Stream, error) {
	scope := e.reporter.Begin(ctx, cmd)

	stream, err := e.delegate.Accept(ctx, cmd)
	if err != nil {
		scope.Rejected(err)
		return nil, err
	}
	scope.Accepted()

	out := &eventfulStream{Future: NewFuture(), inner: stream, scope: scope}
	stream.Subscribe(func(res engine.Results, err error) {
		if err != nil {
			scope.Failed(err)
			out.Complete(nil, err)
			return
		}
		scope.Executed()
		out.Complete(&eventfulResults{Results: res, scope: scope}, nil)
	})
	return out, nil
}

type eventfulStream struct {
	*Future
	inner Stream
	scope *events.Scope
}

func (s *eventfulStream) Cancel() { s.inner.Cancel() }

func (s *eventfulStream) Abort(cause error) { s.inner.Abort(cause) }

// Correlation returns the id shared by this request's events.
func (s *eventfulStream) Correlation() string { return s.scope.Correlation() }

type eventfulResults struct {
	engine.Results
	scope *events.Scope

	once sync.Once
}

func (r *eventfulResults) Write(w io.Writer) error {
	err := r.Results.Write(w)
	r.once.Do(func() {
		if err != nil {
			r.scope.Failed(err)
			return
		}
		r.scope.Completed()
	})
	return err
}

func (r *eventfulResults) Close() error {
	err := r.Results.Close()
	r.once.Do(func() { r.scope.Failed(fmt.Errorf("%w: %w", fault.Cancelled(), ErrDiscarded)) })
	return err
}

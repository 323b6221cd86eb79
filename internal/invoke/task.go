package invoke

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/fault"
)

type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskCompleted
	taskCancelled
)

// Task is the stream returned by Invoker.Accept. It executes its Invocation
// at most once, on a scheduler worker.
type Task struct {
	*Future

	inv    engine.Invocation
	cmd    *command.Command
	ctx    context.Context
	stop   context.CancelFunc
	tracer trace.Tracer

	mu         sync.Mutex
	state      taskState
	cancelOnce sync.Once
}

// newTask binds inv to a context that expires after timeout, or never when
// timeout is zero.
func newTask(ctx context.Context, timeout time.Duration, inv engine.Invocation, cmd *command.Command, tracer trace.Tracer) *Task {
	var stop context.CancelFunc
	if timeout > 0 {
		ctx, stop = context.WithTimeout(ctx, timeout)
	} else {
		ctx, stop = context.WithCancel(ctx)
	}
	return &Task{
		Future: NewFuture(),
		inv:    inv,
		cmd:    cmd,
		ctx:    ctx,
		stop:   stop,
		tracer: tracer,
	}
}

// run is the worker body.
func (t *Task) run() {
	t.mu.Lock()
	if t.state != taskPending {
		t.mu.Unlock()
		return
	}
	t.state = taskRunning
	t.mu.Unlock()

	res, err := t.execute()

	t.mu.Lock()
	cancelled := t.state == taskCancelled
	if !cancelled {
		t.state = taskCompleted
	}
	t.mu.Unlock()

	if cancelled {
		// Cancel already completed the future.
		if res != nil {
			_ = res.Close()
		}
		return
	}
	if err != nil {
		t.stop()
		t.Complete(nil, err)
		return
	}
	t.Complete(&boundResults{Results: res, stop: t.stop}, nil)
}

func (t *Task) execute() (res engine.Results, err error) {
	ctx, span := t.tracer.Start(t.ctx, "invocation.execute", trace.WithAttributes(
		attribute.String("lingua.language", t.cmd.Language().String()),
		attribute.String("lingua.schema", t.cmd.Schema()),
		attribute.String("lingua.permission", string(t.inv.RequiredPermission())),
	))
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fault.Internal(fmt.Errorf("invocation panic: %v", r))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	res, err = t.inv.Execute(ctx)
	if err == nil && res == nil {
		err = fault.Internal(fmt.Errorf("invocation returned no results"))
	}
	return res, err
}

// Cancel aborts the task with fault.Cancelled.
func (t *Task) Cancel() { t.Abort(fault.Cancelled()) }

// Abort cancels the Invocation exactly once and completes the stream with
// cause. After completion it does nothing.
func (t *Task) Abort(cause error) {
	t.mu.Lock()
	if t.state == taskCompleted || t.state == taskCancelled {
		t.mu.Unlock()
		return
	}
	t.state = taskCancelled
	t.mu.Unlock()

	t.cancelOnce.Do(t.inv.Cancel)
	t.stop()
	t.Complete(nil, cause)
}

// boundResults keeps the task context alive until the payload is released.
type boundResults struct {
	engine.Results
	stop context.CancelFunc
}

func (b *boundResults) Close() error {
	defer b.stop()
	return b.Results.Close()
}

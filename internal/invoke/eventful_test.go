package invoke

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/fault"
)

// recorder is a synchronous Publisher.
type recorder struct {
	mu     sync.Mutex
	events []events.Lifecycle
}

func (r *recorder) Publish(eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if eventType == events.TypeRequest {
		r.events = append(r.events, data.(events.Lifecycle))
	}
}

func (r *recorder) subjects() []events.Subject {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Subject, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Subject)
	}
	return out
}

func (r *recorder) correlations() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]struct{}{}
	for _, ev := range r.events {
		out[ev.Correlation] = struct{}{}
	}
	return out
}

func eventfulFixture(t *testing.T) (*fixture, *recorder, Connector) {
	f := newFixture(t, 1, 0, time.Second)
	rec := &recorder{}
	return f, rec, Eventful(events.NewReporter(rec), f.invoker)
}

func TestEventfulHappyPath(t *testing.T) {
	f, rec, conn := eventfulFixture(t)
	inv := f.invocation(auth.PermissionInvokeQuery)
	f.engine.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(inv, nil)
	inv.EXPECT().Execute(gomock.Any()).Return(engine.NewResults("text/csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "x\n1\n")
		return err
	}, nil), nil)

	ctx := events.WithCorrelation(context.Background(), "req-1")
	stream, err := conn.Accept(ctx, queryCommand(auth.RoleUser, http.MethodGet))
	require.NoError(t, err)

	res, err := await(t, stream)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, res.Write(&buf))
	require.NoError(t, res.Close())

	assert.Equal(t, "x\n1\n", buf.String())
	assert.Equal(t, []events.Subject{events.Received, events.Accepted, events.Executed, events.Completed}, rec.subjects())
	assert.Equal(t, map[string]struct{}{"req-1": {}}, rec.correlations())
	assert.Equal(t, "req-1", stream.(interface{ Correlation() string }).Correlation())
}

func TestEventfulRejected(t *testing.T) {
	f, rec, conn := eventfulFixture(t)
	inv := f.invocation(auth.PermissionInvokeUpdate)
	f.engine.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(inv, nil)
	inv.EXPECT().Cancel()

	_, err := conn.Accept(context.Background(), queryCommand(auth.RoleOwner, http.MethodGet))
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, fault.Status(err))
	assert.Equal(t, []events.Subject{events.Received, events.Rejected}, rec.subjects())
	assert.Len(t, rec.correlations(), 1)

	rec.mu.Lock()
	last := rec.events[1]
	rec.mu.Unlock()
	assert.Equal(t, fault.CodeForbidden, last.Code)
	assert.Equal(t, http.StatusForbidden, last.Status)
}

func TestEventfulExecutionFailure(t *testing.T) {
	f, rec, conn := eventfulFixture(t)
	inv := f.invocation(auth.PermissionInvokeQuery)
	f.engine.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(inv, nil)
	inv.EXPECT().Execute(gomock.Any()).Return(nil, fault.Unavailable(errors.New("disk gone")))

	stream, err := conn.Accept(context.Background(), queryCommand(auth.RoleUser, http.MethodGet))
	require.NoError(t, err)
	_, err = await(t, stream)
	assert.Equal(t, http.StatusInternalServerError, fault.Status(err))

	assert.Equal(t, []events.Subject{events.Received, events.Accepted, events.Failed}, rec.subjects())
}

func TestEventfulWriteFailure(t *testing.T) {
	f, rec, conn := eventfulFixture(t)
	inv := f.invocation(auth.PermissionInvokeQuery)
	f.engine.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(inv, nil)
	inv.EXPECT().Execute(gomock.Any()).Return(engine.NewResults("text/csv", func(io.Writer) error {
		return errors.New("broken pipe")
	}, nil), nil)

	stream, err := conn.Accept(context.Background(), queryCommand(auth.RoleUser, http.MethodGet))
	require.NoError(t, err)
	res, err := await(t, stream)
	require.NoError(t, err)
	assert.EqualError(t, res.Write(io.Discard), "broken pipe")
	require.NoError(t, res.Close())

	assert.Equal(t, []events.Subject{events.Received, events.Accepted, events.Executed, events.Failed}, rec.subjects())
}

func TestEventfulDiscardedResultsFail(t *testing.T) {
	f, rec, conn := eventfulFixture(t)
	inv := f.invocation(auth.PermissionInvokeQuery)
	f.engine.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(inv, nil)
	inv.EXPECT().Execute(gomock.Any()).Return(engine.NewResults("text/csv", func(io.Writer) error { return nil }, nil), nil)

	stream, err := conn.Accept(context.Background(), queryCommand(auth.RoleUser, http.MethodGet))
	require.NoError(t, err)
	res, err := await(t, stream)
	require.NoError(t, err)
	require.NoError(t, res.Close())
	require.NoError(t, res.Close())

	assert.Equal(t, []events.Subject{events.Received, events.Accepted, events.Executed, events.Failed}, rec.subjects())
}

func TestEventfulCancelNeverCompletes(t *testing.T) {
	f, rec, conn := eventfulFixture(t)
	inv := f.invocation(auth.PermissionInvokeQuery)
	started := make(chan struct{})
	unblock := make(chan struct{})
	f.engine.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(inv, nil)
	inv.EXPECT().Execute(gomock.Any()).DoAndReturn(func(context.Context) (engine.Results, error) {
		close(started)
		<-unblock
		return nil, fault.Cancelled()
	})
	inv.EXPECT().Cancel().Do(func() { close(unblock) }).Times(1)

	stream, err := conn.Accept(context.Background(), queryCommand(auth.RoleUser, http.MethodGet))
	require.NoError(t, err)
	<-started
	stream.Cancel()
	stream.Cancel()

	_, err = await(t, stream)
	assert.True(t, fault.Is(err, fault.CodeCancelled))
	require.Eventually(t, func() bool { return f.scheduler.Stats().Running == 0 }, time.Second, 10*time.Millisecond)

	assert.Equal(t, []events.Subject{events.Received, events.Accepted, events.Failed}, rec.subjects())
	assert.NotContains(t, rec.subjects(), events.Completed)
}

func TestEventfulOverloadIsRejected(t *testing.T) {
	f, rec, conn := eventfulFixture(t)

	unblock := make(chan struct{})
	busy := f.invocation(auth.PermissionInvokeQuery)
	busy.EXPECT().Execute(gomock.Any()).DoAndReturn(func(context.Context) (engine.Results, error) {
		<-unblock
		return nil, errors.New("released")
	})
	extra := f.invocation(auth.PermissionInvokeQuery)
	extra.EXPECT().Cancel()
	gomock.InOrder(
		f.engine.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(busy, nil),
		f.engine.EXPECT().Prepare(gomock.Any(), gomock.Any()).Return(extra, nil),
	)

	first, err := conn.Accept(context.Background(), queryCommand(auth.RoleUser, http.MethodGet))
	require.NoError(t, err)
	_, err = conn.Accept(context.Background(), queryCommand(auth.RoleUser, http.MethodGet))
	assert.True(t, fault.Is(err, fault.CodeOverloaded))

	close(unblock)
	_, _ = await(t, first)

	assert.Len(t, rec.correlations(), 2)
	assert.ElementsMatch(t,
		[]events.Subject{events.Received, events.Accepted, events.Received, events.Rejected, events.Failed},
		rec.subjects())
}

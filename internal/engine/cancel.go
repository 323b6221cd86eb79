package engine

import (
	"context"
	"sync"

	"github.com/mattjoyce/lingua/internal/fault"
)

// Cancellation lets an Invocation honour Cancel calls that arrive before,
// during or after Execute. Embed it and call Bind at the start of Execute.
type Cancellation struct {
	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
}

// Bind derives the execution context. It fails with fault.Cancelled if Cancel
// already ran. The returned release func must be deferred by the caller.
func (c *Cancellation) Bind(ctx context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return nil, nil, fault.Cancelled()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return ctx, cancel, nil
}

// Cancel aborts the bound context. Idempotent.
func (c *Cancellation) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return
	}
	c.cancelled = true
	if c.cancel != nil {
		c.cancel()
	}
}

// Cancelled reports whether Cancel ran.
func (c *Cancellation) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

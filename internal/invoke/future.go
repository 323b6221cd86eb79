package invoke

import (
	"sync"

	"github.com/mattjoyce/lingua/internal/engine"
)

// Future holds the single outcome of an invocation: one Results or one
// error. Continuations registered with Subscribe run once the outcome is
// known, on the completing goroutine, or immediately if it already is.
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	res       engine.Results
	err       error
	callbacks []func(engine.Results, error)
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Complete sets the outcome. Only the first call has effect; it reports
// whether this call won.
func (f *Future) Complete(res engine.Results, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.res, f.err = res, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(res, err)
	}
	return true
}

// Subscribe registers fn to receive the outcome.
func (f *Future) Subscribe(fn func(engine.Results, error)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	res, err := f.res, f.err
	f.mu.Unlock()
	fn(res, err)
}

// Done is closed once the outcome is known.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result returns the outcome. Only meaningful after Done is closed.
func (f *Future) Result() (engine.Results, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res, f.err
}

package protocol

import (
	"sync"
	"time"

	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/fault"
)

// AsyncResponse is the pending response of a suspended request. Exactly one
// of Resume, the timeout or Disconnect decides its outcome; later attempts
// report false and leave the outcome untouched.
type AsyncResponse struct {
	mu         sync.Mutex
	state      State
	res        engine.Results
	err        error
	timer      *time.Timer
	disconnect []func()
	completion []func(State)
	done       chan struct{}
}

// NewAsyncResponse returns a response suspended in the executing state.
func NewAsyncResponse() *AsyncResponse {
	return &AsyncResponse{state: StateExecuting, done: make(chan struct{})}
}

// Resume resolves the response with a stream outcome. When it reports false
// the caller still owns res.
func (a *AsyncResponse) Resume(res engine.Results, err error) bool {
	state := StateCompleted
	switch {
	case fault.Is(err, fault.CodeTimeout):
		state = StateTimedOut
	case err != nil:
		state = StateFailed
	}
	return a.resolve(state, res, err, nil)
}

// SetTimeout arms a timer that calls handler if the response is still
// pending after d. A nil handler resumes with a timeout error. A second call
// replaces the previous timer.
func (a *AsyncResponse) SetTimeout(d time.Duration, handler func(*AsyncResponse)) {
	if handler == nil {
		handler = func(a *AsyncResponse) { a.resolve(StateTimedOut, nil, fault.Timeout(), nil) }
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Terminal() {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	if d <= 0 {
		return
	}
	a.timer = time.AfterFunc(d, func() { handler(a) })
}

// OnDisconnect registers fn to run if the caller goes away first.
func (a *AsyncResponse) OnDisconnect(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disconnect = append(a.disconnect, fn)
}

// Register adds a callback that runs once with the final state, whichever
// way the response was resolved. Registering after resolution runs fn
// immediately.
func (a *AsyncResponse) Register(fn func(State)) {
	a.mu.Lock()
	if !a.state.Terminal() {
		a.completion = append(a.completion, fn)
		a.mu.Unlock()
		return
	}
	state := a.state
	a.mu.Unlock()
	fn(state)
}

// Disconnect resolves the response as abandoned by the caller. Disconnect
// handlers run before completion callbacks.
func (a *AsyncResponse) Disconnect() bool {
	a.mu.Lock()
	handlers := a.disconnect
	a.mu.Unlock()
	return a.resolve(StateDisconnected, nil, nil, handlers)
}

func (a *AsyncResponse) resolve(state State, res engine.Results, err error, first []func()) bool {
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return false
	}
	a.state, a.res, a.err = state, res, err
	if a.timer != nil {
		a.timer.Stop()
	}
	callbacks := a.completion
	a.completion = nil
	close(a.done)
	a.mu.Unlock()

	for _, fn := range first {
		fn()
	}
	for _, fn := range callbacks {
		fn(state)
	}
	return true
}

// Done is closed once the outcome is decided.
func (a *AsyncResponse) Done() <-chan struct{} { return a.done }

// Outcome returns the current state and, once resolved, its results or error.
func (a *AsyncResponse) Outcome() (State, engine.Results, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.res, a.err
}

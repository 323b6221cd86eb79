package engine

import (
	"errors"
	"io"
	"sync"
)

// ErrConsumed is returned by Write on a Results that was already written or
// closed.
var ErrConsumed = errors.New("results already consumed")

type results struct {
	mediaType string
	write     func(io.Writer) error
	release   func() error

	mu       sync.Mutex
	consumed bool
	closed   bool
	closeErr error
}

// NewResults wraps a write function and a release function as Results.
// Write runs at most once; release runs exactly once, on the first Close.
// release may be nil.
func NewResults(mediaType string, write func(io.Writer) error, release func() error) Results {
	return &results{mediaType: mediaType, write: write, release: release}
}

func (r *results) MediaType() string { return r.mediaType }

func (r *results) Write(w io.Writer) error {
	r.mu.Lock()
	if r.consumed || r.closed {
		r.mu.Unlock()
		return ErrConsumed
	}
	r.consumed = true
	r.mu.Unlock()
	return r.write(w)
}

func (r *results) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.closeErr
	}
	r.closed = true
	if r.release != nil {
		r.closeErr = r.release()
	}
	return r.closeErr
}

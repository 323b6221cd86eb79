package invoke

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/mattjoyce/lingua/internal/fault"
	"github.com/mattjoyce/lingua/internal/log"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("scheduler closed")

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Running  int `json:"running"`
	Waiting  int `json:"waiting"`
	Capacity int `json:"capacity"`
}

// Scheduler runs work on a fixed pool of workers fed by a bounded queue.
// Admission is decided without blocking: a submission either takes one of
// workers+queue slots or fails with fault.Overloaded.
type Scheduler struct {
	pool     *ants.Pool
	slots    chan struct{}
	queue    chan func()
	inflight atomic.Int64
	active   atomic.Int64
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	fed    chan struct{}
}

// NewScheduler starts a scheduler with the given number of workers and
// queue depth. workers must be positive; queue may be zero.
func NewScheduler(workers, queue int) (*Scheduler, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	if queue < 0 {
		return nil, fmt.Errorf("queue must not be negative, got %d", queue)
	}

	s := &Scheduler{
		slots:  make(chan struct{}, workers+queue),
		queue:  make(chan func(), workers+queue),
		logger: log.WithComponent("scheduler"),
		fed:    make(chan struct{}),
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		s.logger.Error("worker panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	s.pool = pool

	go s.feed()
	return s, nil
}

// Submit admits fn or fails immediately.
func (s *Scheduler) Submit(fn func()) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fault.Unavailable(ErrClosed)
	}

	select {
	case s.slots <- struct{}{}:
	default:
		return fault.Overloaded()
	}
	s.inflight.Add(1)
	// Never blocks: queue capacity equals slot capacity.
	s.queue <- fn
	return nil
}

// feed hands queued work to the pool in submission order. pool.Submit blocks
// while every worker is busy.
func (s *Scheduler) feed() {
	defer close(s.fed)
	for fn := range s.queue {
		err := s.pool.Submit(func() {
			s.active.Add(1)
			defer s.release()
			defer s.active.Add(-1)
			fn()
		})
		if err != nil {
			s.logger.Error("failed to hand work to pool", "error", err)
			s.release()
		}
	}
}

// release frees the slot before the counter so that an idle Stats implies
// an admissible Submit.
func (s *Scheduler) release() {
	<-s.slots
	s.inflight.Add(-1)
}

func (s *Scheduler) Stats() Stats {
	running := int(s.active.Load())
	waiting := int(s.inflight.Load()) - running
	if waiting < 0 {
		waiting = 0
	}
	return Stats{Running: running, Waiting: waiting, Capacity: cap(s.slots)}
}

// Close stops admission, lets queued work start, and waits up to grace for
// running work to finish.
func (s *Scheduler) Close(grace time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.fed:
	case <-time.After(grace):
		s.logger.Warn("queued work still pending at shutdown", "waiting", s.Stats().Waiting)
	}
	return s.pool.ReleaseTimeout(grace)
}

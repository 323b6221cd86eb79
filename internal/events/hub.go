// Package events carries request lifecycle events from the pipeline to
// observers (SSE clients, the request journal, metrics).
//
// Producers call Publish, which never blocks: the event is handed to a
// buffered inbox and dropped (and counted) if the inbox is full. A single
// dispatcher goroutine drains the inbox, assigns ids, records the event in a
// ring buffer for late clients and fans it out. Delivery order is therefore
// the order in which Publish calls happened. A subscriber whose channel is
// full misses the event; those misses are counted separately.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

type Event struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Publisher is the producer side of the hub.
type Publisher interface {
	Publish(eventType string, data any)
}

type envelope struct {
	typ  string
	at   time.Time
	data []byte
}

// Hub is an in-memory pub/sub with a small ring buffer for late clients.
type Hub struct {
	in      chan envelope
	dropped atomic.Int64
	lagged  atomic.Int64
	nextID  int64 // dispatcher only

	mu    sync.Mutex
	ring  []Event
	start int
	size  int

	subs      map[int]chan Event
	nextSubID int

	started  atomic.Bool
	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// NewHub creates a hub with an inbox of buffer events and a replay ring of
// history events. Start must be called before events are delivered.
func NewHub(buffer, history int) *Hub {
	if buffer <= 0 {
		buffer = 1024
	}
	if history <= 0 {
		history = 100
	}
	return &Hub{
		in:   make(chan envelope, buffer),
		ring: make([]Event, history),
		subs: make(map[int]chan Event),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start runs the dispatcher until ctx is done or Close is called.
func (h *Hub) Start(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	go h.dispatch(ctx)
}

func (h *Hub) dispatch(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case env := <-h.in:
			h.deliver(env)
		case <-ctx.Done():
			h.drain()
			return
		case <-h.quit:
			h.drain()
			return
		}
	}
}

// drain delivers whatever is already buffered.
func (h *Hub) drain() {
	for {
		select {
		case env := <-h.in:
			h.deliver(env)
		default:
			return
		}
	}
}

func (h *Hub) deliver(env envelope) {
	h.nextID++
	ev := Event{ID: h.nextID, Type: env.typ, At: env.at, Data: env.data}

	h.mu.Lock()
	h.pushLocked(ev)
	for _, ch := range h.subs {
		// Don't let slow clients block the dispatcher.
		select {
		case ch <- ev:
		default:
			h.lagged.Add(1)
		}
	}
	h.mu.Unlock()
}

// Publish enqueues an event without blocking. data is encoded as JSON.
func (h *Hub) Publish(eventType string, data any) {
	payload := []byte("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}
	select {
	case h.in <- envelope{typ: eventType, at: time.Now().UTC(), data: payload}:
	default:
		h.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded because the inbox was full.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Lagged returns the number of deliveries skipped because a subscriber's
// channel was full, summed over subscribers.
func (h *Hub) Lagged() int64 { return h.lagged.Load() }

// Subscribe returns a channel of events published from now on and a cancel
// func that closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Event, 256)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// SnapshotSince returns buffered events with ID > lastID, oldest-first.
// If lastID is 0, the full ring buffer snapshot is returned.
func (h *Hub) SnapshotSince(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, h.size)
	for i := 0; i < h.size; i++ {
		ev := h.ring[(h.start+i)%len(h.ring)]
		if lastID == 0 || ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}

// Close stops the dispatcher after delivering buffered events and closes
// every subscription.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.quit) })
	if h.started.Load() {
		<-h.done
	}

	h.mu.Lock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) pushLocked(ev Event) {
	capacity := len(h.ring)
	if h.size < capacity {
		h.ring[(h.start+h.size)%capacity] = ev
		h.size++
		return
	}
	// Overwrite oldest.
	h.ring[h.start] = ev
	h.start = (h.start + 1) % capacity
}

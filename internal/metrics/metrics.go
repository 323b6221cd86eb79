// Package metrics exposes request, pool and HTTP metrics in the Prometheus
// text format.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/invoke"
)

const namespace = "lingua"

const maxTracked = 4096

// PoolStats reports worker pool occupancy.
type PoolStats interface {
	Stats() invoke.Stats
}

// DropCounter reports events lost by the hub, at the inbox and at
// subscribers that fell behind.
type DropCounter interface {
	Dropped() int64
	Lagged() int64
}

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]int64
}

// New registers the lingua collectors on a fresh registry.
func New(pool PoolStats, hub DropCounter) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Finished query requests by language and outcome.",
		}, []string{"language", "outcome", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from receipt to the terminal event of a query request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"language", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		started: make(map[string]int64),
	}

	if pool != nil {
		gauge := func(name, help string, value func(invoke.Stats) int) {
			factory.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
				func() float64 { return float64(value(pool.Stats())) })
		}
		gauge("pool_running", "Invocations executing on a worker.", func(s invoke.Stats) int { return s.Running })
		gauge("pool_waiting", "Admitted invocations waiting for a worker.", func(s invoke.Stats) int { return s.Waiting })
		gauge("pool_capacity", "Maximum admitted invocations.", func(s invoke.Stats) int { return s.Capacity })
	}
	if hub != nil {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because the hub inbox was full.",
		}, func() float64 { return float64(hub.Dropped()) })
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_lagged_total",
			Help:      "Event deliveries skipped because a subscriber channel was full.",
		}, func() float64 { return float64(hub.Lagged()) })
	}
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests and embedding.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Run observes request events from ch until it is closed or ctx is done.
func (m *Metrics) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			m.Observe(ev)
		}
	}
}

// Observe accounts one hub event.
func (m *Metrics) Observe(ev events.Event) {
	if ev.Type != events.TypeRequest {
		return
	}
	var lc events.Lifecycle
	if err := json.Unmarshal(ev.Data, &lc); err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case lc.Subject == events.Received:
		// Terminal events lost to a full hub would otherwise leak entries.
		if len(m.started) < maxTracked {
			m.started[lc.Correlation] = lc.Timestamp
		}
	case lc.Subject.Terminal():
		m.requests.WithLabelValues(lc.Language, string(lc.Subject), lc.Code).Inc()
		if begin, ok := m.started[lc.Correlation]; ok {
			delete(m.started, lc.Correlation)
			seconds := float64(lc.Timestamp-begin) / float64(time.Second/time.Microsecond)
			m.requestDuration.WithLabelValues(lc.Language, string(lc.Subject)).Observe(seconds)
		}
	}
}

// Middleware records HTTP request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/invoke"
	"github.com/mattjoyce/lingua/internal/journal"
)

// QueryResource serves one query request for a language.
type QueryResource interface {
	Serve(w http.ResponseWriter, r *http.Request, language command.Language)
}

// EventSource is the consumer side of the event hub.
type EventSource interface {
	Subscribe() (<-chan events.Event, func())
	SnapshotSince(lastID int64) []events.Event
}

// RequestLog looks up finished requests.
type RequestLog interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
	Get(ctx context.Context, correlation string) (journal.Entry, error)
}

// PoolStats reports worker pool occupancy.
type PoolStats interface {
	Stats() invoke.Stats
}

// Config holds API server configuration
type Config struct {
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// AnonymousRole is granted to requests without an Authorization header.
	AnonymousRole auth.Role
	Tokens        []auth.TokenConfig

	// RateLimit is the per-principal request rate; zero disables limiting.
	RateLimit float64
	Burst     int
}

// Deps are the collaborators behind the routes. Only Resource is required.
type Deps struct {
	Resource  QueryResource
	Events    EventSource
	Journal   RequestLog
	Pool      PoolStats
	Languages []command.Language
	Metrics   interface {
		Handler() http.Handler
		Middleware(http.Handler) http.Handler
	}
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	deps      Deps
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
	limiter   *limiterSet
	keepAlive time.Duration
}

// New creates a new API server instance
func New(config Config, deps Deps, logger *slog.Logger) *Server {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		config:    config,
		deps:      deps,
		logger:    logger,
		startedAt: time.Now(),
		keepAlive: 15 * time.Second,
	}
	if config.RateLimit > 0 {
		s.limiter = newLimiterSet(config.RateLimit, config.Burst)
	}
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	// Unauthenticated ops endpoint.
	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.rateLimitMiddleware)

		r.Get("/openapi.json", s.handleOpenAPI)
		r.Route("/meta", func(r chi.Router) {
			r.Use(s.requirePermission(auth.PermissionAdministrate))
			r.Get("/events", s.handleEvents)
			r.Get("/requests", s.handleListRequests)
			r.Get("/requests/{correlation}", s.handleGetRequest)
		})
		// Every method reaches the resource; it answers 405 itself.
		r.HandleFunc("/{language}", s.handleQuery)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

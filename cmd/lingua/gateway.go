package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/lingua/internal/api"
	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/config"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/engine/graph"
	"github.com/mattjoyce/lingua/internal/engine/sqlengine"
	"github.com/mattjoyce/lingua/internal/events"
	"github.com/mattjoyce/lingua/internal/invoke"
	"github.com/mattjoyce/lingua/internal/journal"
	"github.com/mattjoyce/lingua/internal/log"
	"github.com/mattjoyce/lingua/internal/metrics"
	"github.com/mattjoyce/lingua/internal/protocol"
	"github.com/mattjoyce/lingua/internal/storage"
)

// gateway owns every long-lived component behind the API server.
type gateway struct {
	db      *sql.DB
	reader  *sql.DB
	router  *engine.Router
	sched   *invoke.Scheduler
	hub     *events.Hub
	journal *journal.Journal
	metrics *metrics.Metrics
	server  *api.Server

	cancel context.CancelFunc
	logger *slog.Logger
}

// newGateway opens the dataset and assembles the request pipeline. The
// returned gateway must be closed.
func newGateway(ctx context.Context, cfg *config.Config) (_ *gateway, err error) {
	g := &gateway{logger: log.WithComponent("gateway")}
	defer func() {
		if err != nil {
			g.Close(0)
		}
	}()

	datasetPath := cfg.ResolvePath(cfg.Dataset.Path)
	if g.db, err = storage.OpenSQLite(ctx, datasetPath); err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	g.logger.Info("dataset opened", "name", cfg.Dataset.Name, "path", datasetPath)

	if cfg.Dataset.Seed != "" {
		seed := cfg.ResolvePath(cfg.Dataset.Seed)
		if err = storage.Seed(ctx, g.db, seed); err != nil {
			return nil, err
		}
		g.logger.Info("dataset seeded", "script", seed)
	}

	if g.reader, err = storage.OpenReadOnly(ctx, datasetPath); err != nil {
		return nil, fmt.Errorf("open dataset for queries: %w", err)
	}

	engines, err := newEngines(g.db, g.reader, cfg.Engine.Languages)
	if err != nil {
		return nil, err
	}
	if g.router, err = engine.NewRouter(engines...); err != nil {
		return nil, err
	}

	if g.sched, err = invoke.NewScheduler(cfg.Engine.Workers, cfg.Engine.Queue); err != nil {
		return nil, err
	}

	// Consumers outlive the caller's context so they can drain the hub on
	// shutdown; Close stops them.
	runCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.hub = events.NewHub(cfg.Events.Buffer, cfg.Events.History)
	g.hub.Start(runCtx)

	g.journal = journal.New(g.db)
	g.metrics = metrics.New(g.sched, g.hub)
	jch, _ := g.hub.Subscribe()
	go g.journal.Run(runCtx, jch)
	mch, _ := g.hub.Subscribe()
	go g.metrics.Run(runCtx, mch)

	invoker := invoke.New(g.router, auth.RoleAuthorizer{}, g.sched, cfg.Engine.Timeout)
	connector := invoke.Eventful(events.NewReporter(g.hub), invoker)
	resource := protocol.NewResource(connector, cfg.Dataset.Name, cfg.Engine.Timeout).
		WithMaxBody(cfg.API.MaxBodyBytes)

	g.server = api.New(apiConfig(cfg), api.Deps{
		Resource:  resource,
		Events:    g.hub,
		Journal:   g.journal,
		Pool:      g.sched,
		Languages: g.router.Languages(),
		Metrics:   g.metrics,
	}, log.WithComponent("api"))
	return g, nil
}

func newEngines(db, reader *sql.DB, languages []string) ([]engine.Engine, error) {
	engines := make([]engine.Engine, 0, len(languages))
	for _, name := range languages {
		switch command.ParseLanguage(name) {
		case command.Relational:
			engines = append(engines, sqlengine.New(db, reader))
		case command.Graph:
			engines = append(engines, graph.New(db))
		default:
			return nil, fmt.Errorf("no engine for language %q", name)
		}
	}
	if len(engines) == 0 {
		return nil, errors.New("no languages enabled")
	}
	return engines, nil
}

func apiConfig(cfg *config.Config) api.Config {
	tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
	for _, t := range cfg.API.Auth.Tokens {
		tokens = append(tokens, auth.TokenConfig{Token: t.Token, Role: t.Role, Name: t.Name})
	}
	return api.Config{
		Listen:          cfg.API.Listen,
		ReadTimeout:     cfg.API.ReadTimeout,
		WriteTimeout:    cfg.API.WriteTimeout,
		ShutdownTimeout: cfg.API.ShutdownTimeout,
		AnonymousRole:   auth.RoleFromString(cfg.API.Auth.AnonymousRole),
		Tokens:          tokens,
		RateLimit:       cfg.API.RateLimit.RPS,
		Burst:           cfg.API.RateLimit.Burst,
	}
}

// Close drains admitted work for up to grace, then releases everything in
// reverse order of construction. It tolerates a partly built gateway.
func (g *gateway) Close(grace time.Duration) {
	if g.sched != nil {
		if err := g.sched.Close(grace); err != nil {
			g.logger.Warn("worker pool did not drain", "error", err)
		}
	}
	if g.hub != nil {
		g.hub.Close()
	}
	if g.cancel != nil {
		g.cancel()
	}
	if g.router != nil {
		if err := g.router.Close(); err != nil {
			g.logger.Warn("close engines", "error", err)
		}
	}
	if g.reader != nil {
		if err := g.reader.Close(); err != nil {
			g.logger.Warn("close query handle", "error", err)
		}
	}
	if g.db != nil {
		if err := g.db.Close(); err != nil {
			g.logger.Warn("close dataset", "error", err)
		}
	}
}

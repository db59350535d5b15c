// Package app wires every component into a running recorder process:
// Store open, Supervisor boot, and the HTTP surface, the same
// single-binary shape codeready-toolchain-tarsy's cmd/tarsy/main.go
// assembles inline. Kept as its own package so cmd/recorder/main.go stays
// a thin flag-and-signal shell.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/goclode/internal/api"
	"github.com/anthropics/goclode/internal/archtrack"
	"github.com/anthropics/goclode/internal/broadcast"
	"github.com/anthropics/goclode/internal/config"
	"github.com/anthropics/goclode/internal/correlate"
	"github.com/anthropics/goclode/internal/ingest"
	"github.com/anthropics/goclode/internal/llmclient"
	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/queryapi"
	"github.com/anthropics/goclode/internal/store"
	"github.com/anthropics/goclode/internal/watch"
	"github.com/anthropics/goclode/internal/worker"
)

// App holds every wired component for the lifetime of the process.
type App struct {
	cfg        *config.Config
	store      *store.Store
	bus        *broadcast.Broadcaster
	pool       *worker.Pool
	supervisor *watch.Supervisor
	tracker    *archtrack.Tracker
	correlator *correlate.Correlator
	ingest     *ingest.API
	query      *queryapi.API
	server     *api.Server
	logger     *slog.Logger
}

// New opens the Store and wires every downstream component. It does not
// start any background goroutines or the HTTP listener: Boot starts the
// worker pool and Watchers, and cmd/recorder starts the HTTP listener.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	bus := broadcast.New()
	pool := worker.New(cfg.WorkerPoolSize, cfg.WorkerPoolSize*4, logger)

	var llm llmclient.Capability
	if cfg.HasLLM() {
		llm = llmclient.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIMatchModel)
	}

	tracker := archtrack.New(archtrack.Config{
		Store:       st,
		Broadcaster: bus,
		LLM:         llm,
		Logger:      logger,
	})

	supervisor := watch.NewSupervisor(watch.SupervisorConfig{
		Store:        st,
		Broadcaster:  bus,
		GlobalIgnore: cfg.IgnoreParts,
		MaxBytes:     cfg.MaxBytes,
		Debounce:     cfg.WatchDebounce,
		Logger:       logger,
		ArchEnqueue: func(project models.Project, ev models.Event) {
			pool.Submit(func(ctx context.Context) {
				tracker.UpdateImpact(ctx, project.ID, ev)
			})
		},
	})

	correlator := correlate.New(correlate.Config{
		Store:       st,
		Broadcaster: bus,
		LLM:         llm,
		Window:      cfg.CorrelatorWindow,
		Logger:      logger,
	})

	ing := ingest.New(ingest.Config{
		Store:       st,
		Broadcaster: bus,
		Correlator:  correlator,
		Pool:        pool,
		Logger:      logger,
	})

	query := queryapi.New(queryapi.Config{Store: st, Watchers: supervisor})

	server := api.New(api.Config{
		Store:       st,
		Watchers:    supervisor,
		Tracker:     tracker,
		Correlator:  correlator,
		Ingest:      ing,
		Query:       query,
		Broadcaster: bus,
		Logger:      logger,
		CORSEnabled: cfg.CORSEnabled,
		CORSOrigins: cfg.CORSOrigins,
	})

	return &App{
		cfg:        cfg,
		store:      st,
		bus:        bus,
		pool:       pool,
		supervisor: supervisor,
		tracker:    tracker,
		correlator: correlator,
		ingest:     ing,
		query:      query,
		server:     server,
		logger:     logger,
	}, nil
}

// Boot starts the worker pool and one Watcher per active project. Call
// before serving HTTP traffic.
func (a *App) Boot(ctx context.Context) error {
	a.pool.Start(ctx, a.cfg.WorkerPoolSize)
	if err := a.supervisor.Boot(); err != nil {
		return fmt.Errorf("boot watchers: %w", err)
	}
	return nil
}

// Server returns the wired HTTP surface. Call Router() on it to get the
// gin.Engine to serve.
func (a *App) Server() *api.Server { return a.server }

// Shutdown tears down Watchers, drains the worker pool, and closes the
// Store, in that order so no in-flight task writes to a closed database.
func (a *App) Shutdown() {
	a.supervisor.StopAll()
	a.pool.Stop()
	if err := a.store.Close(); err != nil {
		a.logger.Error("app: store close failed", "error", err)
	}
}

package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	eventstore "kasir/contexts/back-office/event-store"
	sqliteadapter "kasir/contexts/back-office/event-store/adapters/sqlite"
	"kasir/contexts/back-office/event-store/application/workers"
	"kasir/internal/platform/config"
	"kasir/internal/platform/db"
	"kasir/internal/platform/messaging"
)

// Package bootstrap is the composition root. Keep construction/wiring here so
// module code stays framework-agnostic.

type WorkerApp struct {
	module    eventstore.Module
	bus       *messaging.Bus
	projector *workers.Projector
	interval  time.Duration
	postgres  *db.Postgres
	sqlite    *sqliteadapter.Journal
	logger    *slog.Logger
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	app := &WorkerApp{
		interval: cfg.ProjectionInterval,
		logger:   logger,
	}

	switch cfg.JournalDriver {
	case config.DriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("POSTGRES_DSN is required")
		}
		pg, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		module, err := eventstore.NewPostgresModule(pg.DB, logger)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		app.postgres = pg
		app.module = module
	case config.DriverSQLite:
		module, journal, err := eventstore.NewSQLiteModule(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		app.sqlite = journal
		app.module = module
	case config.DriverMemory:
		app.module = eventstore.NewInMemoryModule(logger)
	}

	app.bus = messaging.NewBus(logger)
	app.projector = &workers.Projector{
		Store:      app.module.Store,
		Publisher:  app.bus,
		EventTypes: cfg.ProjectionEventTypes,
		Logger:     logger,
	}
	return app, nil
}

// Module exposes the wired event store to in-process collaborators.
func (a *WorkerApp) Module() eventstore.Module {
	return a.module
}

// Bus exposes the event bus so consumers can subscribe before Run.
func (a *WorkerApp) Bus() *messaging.Bus {
	return a.bus
}

// Run drives the projector until the context is canceled. Projection errors
// are logged inside the projector and retried on the next tick.
func (a *WorkerApp) Run(ctx context.Context) error {
	a.logger.Info("projection worker started",
		"event", "worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"interval", a.interval.String(),
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.Close()
		case <-ticker.C:
			_ = a.projector.RunOnce(ctx)
		}
	}
}

func (a *WorkerApp) Close() error {
	var errs []error
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	if a.sqlite != nil {
		errs = append(errs, a.sqlite.Close())
	}
	return errors.Join(errs...)
}

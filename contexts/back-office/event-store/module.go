package eventstore

import (
	"log/slog"

	"gorm.io/gorm"

	"kasir/contexts/back-office/event-store/adapters/memory"
	postgresadapter "kasir/contexts/back-office/event-store/adapters/postgres"
	sqliteadapter "kasir/contexts/back-office/event-store/adapters/sqlite"
	"kasir/contexts/back-office/event-store/application"
	"kasir/contexts/back-office/event-store/ports"
)

type Module struct {
	Store   ports.EventStore
	Journal ports.Journal
	Memory  *memory.Journal
}

type Dependencies struct {
	Journal ports.Journal
	Logger  *slog.Logger
	Tracing bool
}

func NewModule(deps Dependencies) Module {
	store := application.NewStore(deps.Journal, deps.Logger)

	var surface ports.EventStore = store
	if deps.Tracing {
		surface = application.NewTracedStore(store)
	}
	return Module{Store: surface, Journal: deps.Journal}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	journal := memory.NewJournal()
	module := NewModule(Dependencies{Journal: journal, Logger: logger})
	module.Memory = journal
	return module
}

func NewPostgresModule(db *gorm.DB, logger *slog.Logger) (Module, error) {
	if err := postgresadapter.Migrate(db); err != nil {
		return Module{}, err
	}
	journal := postgresadapter.NewJournal(db, logger)
	return NewModule(Dependencies{Journal: journal, Logger: logger, Tracing: true}), nil
}

func NewSQLiteModule(path string, logger *slog.Logger) (Module, *sqliteadapter.Journal, error) {
	journal, err := sqliteadapter.Open(path)
	if err != nil {
		return Module{}, nil, err
	}
	module := NewModule(Dependencies{Journal: journal, Logger: logger, Tracing: true})
	return module, journal, nil
}

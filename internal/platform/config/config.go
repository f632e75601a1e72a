package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Journal driver names accepted by JOURNAL_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is centralized process configuration. Keep infra values here and
// pass typed config into builders.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"kasir"`

	JournalDriver string `env:"JOURNAL_DRIVER" envDefault:"postgres"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"kasir-journal.db"`

	ProjectionEventTypes []string      `env:"PROJECTION_EVENT_TYPES" envSeparator:","`
	ProjectionInterval   time.Duration `env:"PROJECTION_INTERVAL" envDefault:"5s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment config: %w", err)
	}
	switch cfg.JournalDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported journal driver %q", cfg.JournalDriver)
	}
	return cfg, nil
}

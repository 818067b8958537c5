// Package sqlite provides a SQLite value source backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/leapstack-labs/dashvars/pkg/source"

	_ "modernc.org/sqlite" // sqlite driver
)

// Source implements core.Source for SQLite files.
type Source struct {
	source.BaseSQLSource
}

// New creates a new SQLite source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{
		BaseSQLSource: source.BaseSQLSource{Logger: logger},
	}
}

// Name returns the registered type of the source.
func (s *Source) Name() string {
	return "sqlite"
}

// Connect opens the database at cfg.Path, or cfg.DSN when Path is empty.
// An empty config opens an in-memory database.
func (s *Source) Connect(ctx context.Context, cfg core.SourceConfig) error {
	dsn := cfg.Path
	if dsn == "" {
		dsn = cfg.DSN
	}
	if dsn == "" {
		dsn = ":memory:"
	}

	s.Logger.Debug("connecting to sqlite", slog.String("path", dsn))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}
	// An in-memory database exists per connection.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s.DB = db
	s.Cfg = cfg
	return s.ApplyPoolOptions(cfg.Options)
}

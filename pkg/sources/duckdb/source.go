// Package duckdb provides a DuckDB value source.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/leapstack-labs/dashvars/pkg/source"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Source implements core.Source for DuckDB.
type Source struct {
	source.BaseSQLSource
}

// New creates a new DuckDB source instance.
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
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (s *Source) Connect(ctx context.Context, cfg core.SourceConfig) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	s.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return s.ApplyPoolOptions(cfg.Options)
}

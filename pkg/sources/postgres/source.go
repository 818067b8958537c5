// Package postgres provides a PostgreSQL value source using pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/leapstack-labs/dashvars/pkg/source"
)

// Source implements core.Source for PostgreSQL.
type Source struct {
	source.BaseSQLSource
}

// New creates a new PostgreSQL source instance.
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
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (s *Source) Connect(ctx context.Context, cfg core.SourceConfig) error {
	dsn := buildPostgresDSN(cfg)

	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("invalid postgres dsn: %w", err)
	}

	s.Logger.Debug("connecting to postgres", slog.String("host", connCfg.Host), slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return s.ApplyPoolOptions(cfg.Options)
}

// buildPostgresDSN returns cfg.DSN when set, otherwise a key=value
// connection string assembled from the connection options.
func buildPostgresDSN(cfg core.SourceConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	opt := func(key, def string) string {
		if v, ok := cfg.Options[key]; ok && v != "" {
			return v
		}
		return def
	}

	parts := []string{
		"host=" + opt("host", "localhost"),
		"port=" + opt("port", "5432"),
		"sslmode=" + opt("sslmode", "disable"),
	}
	if db := opt("dbname", ""); db != "" {
		parts = append(parts, "dbname="+db)
	}
	if user := opt("user", ""); user != "" {
		parts = append(parts, "user="+user)
	}
	if pw := opt("password", ""); pw != "" {
		parts = append(parts, "password="+pw)
	}
	return strings.Join(parts, " ")
}

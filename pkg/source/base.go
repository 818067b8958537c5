// Package source provides the value source contract, a registry of source
// implementations and the shared database/sql plumbing they embed.
//
// Concrete sources live in pkg/sources/ subdirectories and register
// themselves from init:
//
//	import _ "github.com/leapstack-labs/dashvars/pkg/sources/sqlite"
package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// BaseSQLSource provides common database/sql functionality for sources.
// Embed this struct in concrete implementations to get standard Close and
// Values implementations.
type BaseSQLSource struct {
	DB     *sql.DB
	Cfg    core.SourceConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLSource) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLSource) IsConnected() bool {
	return b.DB != nil
}

// Values runs query and collects the first column of every row as text.
// NULLs are skipped and duplicates dropped; first occurrence order is kept.
func (b *BaseSQLSource) Values(ctx context.Context, query string) ([]string, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("query returned no columns")
	}

	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}

	var values []string
	seen := make(map[string]struct{})
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		s, ok := Stringify(*(dest[0].(*any)))
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		values = append(values, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return values, nil
}

// ApplyPoolOptions configures the connection pool from source options.
// Recognised keys are max_open_conns, max_idle_conns and conn_max_lifetime.
func (b *BaseSQLSource) ApplyPoolOptions(opts map[string]string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if v, ok := opts["max_open_conns"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid max_open_conns %q: %w", v, err)
		}
		b.DB.SetMaxOpenConns(n)
	}
	if v, ok := opts["max_idle_conns"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid max_idle_conns %q: %w", v, err)
		}
		b.DB.SetMaxIdleConns(n)
	}
	if v, ok := opts["conn_max_lifetime"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid conn_max_lifetime %q: %w", v, err)
		}
		b.DB.SetConnMaxLifetime(d)
	}
	return nil
}

// Stringify converts a scanned database value to its text form.
// It reports false for NULL.
func Stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.RFC3339), true
	default:
		return fmt.Sprint(x), true
	}
}

package core

import "context"

// Source produces the options of query variables.
type Source interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg SourceConfig) error

	// Close releases the connection.
	Close() error

	// Values runs a rendered query and returns the distinct values of its
	// first column in result order.
	Values(ctx context.Context, query string) ([]string, error)

	// Name returns the registered type of the source.
	Name() string
}

// SourceConfig holds configuration for connecting to a value source.
type SourceConfig struct {
	Type    string
	DSN     string
	Path    string
	Options map[string]string
}

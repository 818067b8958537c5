package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/leapstack-labs/dashvars/pkg/source"
)

func init() {
	source.Register("postgres", func(logger *slog.Logger) core.Source { return New(logger) })
}

package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/leapstack-labs/dashvars/pkg/source"
)

func init() {
	source.Register("sqlite", func(logger *slog.Logger) core.Source { return New(logger) })
}

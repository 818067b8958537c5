// Package state persists dashboards, refresh runs and variable fetches in
// SQLite. The schema is managed with goose migrations embedded in the binary.
package state

import (
	"errors"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// Type aliases so callers of this package need not import pkg/core.
type (
	// Store is an alias for core.Store.
	Store = core.Store

	// DashboardSummary is an alias for core.DashboardSummary.
	DashboardSummary = core.DashboardSummary

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run

	// FetchStatus is an alias for core.FetchStatus.
	FetchStatus = core.FetchStatus

	// VariableFetch is an alias for core.VariableFetch.
	VariableFetch = core.VariableFetch
)

// Re-exported status constants.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed

	FetchStatusSuccess = core.FetchStatusSuccess
	FetchStatusFailed  = core.FetchStatusFailed
	FetchStatusStale   = core.FetchStatusStale
)

// ErrNotFound is wrapped by lookups of missing dashboards and runs.
var ErrNotFound = errors.New("not found")

var errNotOpened = errors.New("database not opened")

var _ Store = (*SQLiteStore)(nil)

package core

import "time"

// Store defines the interface for state management operations.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Dashboard operations
	SaveDashboard(d *Dashboard) error
	GetDashboard(id string) (*Dashboard, error)
	ListDashboards() ([]*DashboardSummary, error)
	DeleteDashboard(id string) error

	// Run operations
	CreateRun(dashboardID string, trigger string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	ListRuns(dashboardID string, limit int) ([]*Run, error)

	// Variable fetch operations
	RecordFetch(f *VariableFetch) error
	GetFetchesForRun(runID string) ([]*VariableFetch, error)
}

// DashboardSummary is the listing view of a stored dashboard.
type DashboardSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	VariableCount int       `json:"variable_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RunStatus represents the status of a refresh run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one refresh of a dashboard's variables.
type Run struct {
	ID          string     `json:"id"`
	DashboardID string     `json:"dashboard_id"`
	Trigger     string     `json:"trigger"` // "all" or the name of the variable that changed
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// FetchStatus represents the outcome of a single variable fetch.
type FetchStatus string

// Fetch status constants.
const (
	FetchStatusSuccess FetchStatus = "success"
	FetchStatusFailed  FetchStatus = "failed"
	FetchStatusStale   FetchStatus = "stale"
)

// VariableFetch records one value fetch of a variable within a run.
type VariableFetch struct {
	ID          int64       `json:"id"`
	RunID       string      `json:"run_id"`
	Variable    string      `json:"variable"`
	CycleID     int         `json:"cycle_id"`
	Status      FetchStatus `json:"status"`
	ValueCount  int         `json:"value_count"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	ExecutionMS int64       `json:"execution_ms"`
}

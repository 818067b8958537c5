package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

const runColumns = `id, dashboard_id, triggered_by, status, started_at, completed_at, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*core.Run, error) {
	run := &core.Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString
	if err := row.Scan(&run.ID, &run.DashboardID, &run.Trigger, &run.Status,
		&run.StartedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

// CreateRun starts a refresh run for a stored dashboard.
func (s *SQLiteStore) CreateRun(dashboardID string, trigger string) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &core.Run{
		ID:          generateID(),
		DashboardID: dashboardID,
		Trigger:     trigger,
		Status:      core.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, dashboard_id, triggered_by, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.DashboardID, run.Trigger, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs first. An empty dashboardID lists
// runs of every dashboard; a limit of zero or less means no limit.
func (s *SQLiteStore) ListRuns(dashboardID string, limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs
		 WHERE ? = '' OR dashboard_id = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		dashboardID, dashboardID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordFetch stores the outcome of one variable fetch and sets f.ID.
func (s *SQLiteStore) RecordFetch(f *core.VariableFetch) error {
	if s.db == nil {
		return errNotOpened
	}

	result, err := s.db.Exec(`
		INSERT INTO variable_fetches
			(run_id, variable, cycle_id, status, value_count, error, started_at, execution_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Variable, f.CycleID, f.Status, f.ValueCount,
		nullString(f.Error), f.StartedAt.UTC(), f.ExecutionMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record fetch of %s: %w", f.Variable, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

// GetFetchesForRun returns the fetches of a run in the order they were recorded.
func (s *SQLiteStore) GetFetchesForRun(runID string) ([]*core.VariableFetch, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, variable, cycle_id, status, value_count, error, started_at, execution_ms
		FROM variable_fetches WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fetches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fetches []*core.VariableFetch
	for rows.Next() {
		f := &core.VariableFetch{}
		var errMsg sql.NullString
		if err := rows.Scan(&f.ID, &f.RunID, &f.Variable, &f.CycleID, &f.Status,
			&f.ValueCount, &errMsg, &f.StartedAt, &f.ExecutionMS); err != nil {
			return nil, fmt.Errorf("failed to scan fetch: %w", err)
		}
		f.Error = errMsg.String
		fetches = append(fetches, f)
	}
	return fetches, rows.Err()
}

// Stats summarises the fetches of a run.
type Stats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Stale   int `json:"stale"`
}

// RunStats counts the fetches of a run by status.
func (s *SQLiteStore) RunStats(runID string) (Stats, error) {
	fetches, err := s.GetFetchesForRun(runID)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, f := range fetches {
		st.Total++
		switch f.Status {
		case core.FetchStatusSuccess:
			st.Success++
		case core.FetchStatusFailed:
			st.Failed++
		case core.FetchStatusStale:
			st.Stale++
		}
	}
	return st, nil
}

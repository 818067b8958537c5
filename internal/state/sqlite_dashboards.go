package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/pkg/core"
)

// SaveDashboard inserts or replaces a dashboard and all of its variables.
// Dashboards whose variables form a cycle are refused.
func (s *SQLiteStore) SaveDashboard(d *core.Dashboard) error {
	if s.db == nil {
		return errNotOpened
	}
	if d.ID == "" {
		return fmt.Errorf("dashboard has no id")
	}
	if err := dag.NewDependencyContext(d.Variables).Err(); err != nil {
		return fmt.Errorf("refusing to save dashboard %s: %w", d.ID, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	_, err = tx.Exec(`
		INSERT INTO dashboards (id, title, path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			path = excluded.path,
			updated_at = excluded.updated_at`,
		d.ID, d.Title, nullString(d.Path), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save dashboard: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM variables WHERE dashboard_id = ?`, d.ID); err != nil {
		return fmt.Errorf("failed to clear variables: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO variables (
			dashboard_id, name, id, position, type, description,
			query_value, custom_value, textbox_value, default_value, selected_value,
			multi_select, show_all_option, all_selected, sort_order, sort,
			dynamic_attribute, dynamic_source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare variable insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range d.Variables {
		v := &d.Variables[i]
		def, err := core.EncodeValue(v.DefaultValue)
		if err != nil {
			return fmt.Errorf("variable %s: %w", v.Name, err)
		}
		sel, err := core.EncodeValue(v.SelectedValue)
		if err != nil {
			return fmt.Errorf("variable %s: %w", v.Name, err)
		}
		_, err = stmt.Exec(
			d.ID, v.Name, v.ID, i, v.Kind.String(), nullString(v.Description),
			nullString(v.QueryValue), nullString(v.CustomValue), nullString(v.TextboxValue),
			nullString(def), nullString(sel),
			boolToInt(v.MultiSelect), boolToInt(v.ShowAllOption), boolToInt(v.AllSelected),
			v.Order, nullString(v.Sort),
			nullString(v.DynamicAttribute), nullString(v.DynamicSource),
		)
		if err != nil {
			return fmt.Errorf("failed to save variable %s: %w", v.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dashboard: %w", err)
	}
	s.logger.Debug("dashboard saved", "id", d.ID, "variables", len(d.Variables))
	return nil
}

// GetDashboard loads a dashboard with its variables in saved order.
func (s *SQLiteStore) GetDashboard(id string) (*core.Dashboard, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	d := &core.Dashboard{}
	var path sql.NullString
	err := s.db.QueryRow(`SELECT id, title, path FROM dashboards WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dashboard %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}
	d.Path = path.String

	rows, err := s.db.Query(`
		SELECT name, id, type, description, query_value, custom_value, textbox_value,
		       default_value, selected_value, multi_select, show_all_option, all_selected,
		       sort_order, sort, dynamic_attribute, dynamic_source
		FROM variables WHERE dashboard_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get variables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, err
		}
		d.Variables = append(d.Variables, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variables: %w", err)
	}
	return d, nil
}

func scanVariable(rows *sql.Rows) (*core.Variable, error) {
	var (
		v                                      core.Variable
		kind                                   string
		desc, query, custom, textbox           sql.NullString
		def, sel, sortMode, dynAttr, dynSource sql.NullString
		multi, showAll, allSelected            int
	)
	err := rows.Scan(&v.Name, &v.ID, &kind, &desc, &query, &custom, &textbox,
		&def, &sel, &multi, &showAll, &allSelected,
		&v.Order, &sortMode, &dynAttr, &dynSource)
	if err != nil {
		return nil, fmt.Errorf("failed to scan variable: %w", err)
	}

	if v.Kind, err = core.ParseKind(kind); err != nil {
		return nil, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	if v.DefaultValue, err = core.DecodeValue(def.String); err != nil {
		return nil, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	if v.SelectedValue, err = core.DecodeValue(sel.String); err != nil {
		return nil, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	v.Description = desc.String
	v.QueryValue = query.String
	v.CustomValue = custom.String
	v.TextboxValue = textbox.String
	v.MultiSelect = multi != 0
	v.ShowAllOption = showAll != 0
	v.AllSelected = allSelected != 0
	v.Sort = sortMode.String
	v.DynamicAttribute = dynAttr.String
	v.DynamicSource = dynSource.String
	return &v, nil
}

// ListDashboards returns a summary of every stored dashboard ordered by ID.
func (s *SQLiteStore) ListDashboards() ([]*core.DashboardSummary, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(`
		SELECT d.id, d.title, d.updated_at,
		       (SELECT COUNT(*) FROM variables v WHERE v.dashboard_id = d.id)
		FROM dashboards d
		ORDER BY d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.DashboardSummary
	for rows.Next() {
		ds := &core.DashboardSummary{}
		if err := rows.Scan(&ds.ID, &ds.Title, &ds.UpdatedAt, &ds.VariableCount); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// DeleteDashboard removes a dashboard together with its variables and runs.
func (s *SQLiteStore) DeleteDashboard(id string) error {
	if s.db == nil {
		return errNotOpened
	}

	result, err := s.db.Exec(`DELETE FROM dashboards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dashboard: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("dashboard %s: %w", id, ErrNotFound)
	}
	return nil
}

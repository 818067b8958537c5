package commands

import (
	"fmt"

	"github.com/leapstack-labs/dashvars/internal/state"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/spf13/cobra"
)

// NewSelectCommand creates the select command.
func NewSelectCommand() *cobra.Command {
	var (
		dashboardID string
		all         bool
		noRecord    bool
	)

	cmd := &cobra.Command{
		Use:   "select <variable> [value...]",
		Short: "Change a selection and refresh its dependents",
		Long: `Set the selected value of a variable and refetch the query variables
that depend on it.

Every variable is refreshed first so dependents see current options. The
dependents are then fetched one at a time in topological order; when one
fails, the variables depending on it are skipped.

Several values may be given for multi-select variables. --all selects
every option.`,
		Example: `  # Switch env to staging
  dashvars select env staging -d hosts

  # Pick two regions
  dashvars select region us eu -d hosts

  # Select every host
  dashvars select host --all -d hosts`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd, dashboardID, args[0], args[1:], all, noRecord)
		},
	}
	addDashboardFlag(cmd, &dashboardID)
	cmd.Flags().BoolVar(&all, "all", false, "Select every option")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not store the runs in the state database")
	return cmd
}

// selection converts command-line values into a selection for v.
func selection(v *core.Variable, values []string, all bool) (any, error) {
	switch {
	case all && len(values) > 0:
		return nil, fmt.Errorf("--all cannot be combined with values")
	case all:
		return core.AllSelectedValue, nil
	case len(values) == 0:
		return nil, fmt.Errorf("no value given for %s (use --all to select every option)", v.Name)
	case v.MultiSelect:
		out := make([]any, len(values))
		for i, s := range values {
			out[i] = s
		}
		return out, nil
	case len(values) > 1:
		return nil, fmt.Errorf("variable %s is not multi-select but %d values were given", v.Name, len(values))
	default:
		return values[0], nil
	}
}

func runSelect(cmd *cobra.Command, dashboardID, name string, values []string, all, noRecord bool) error {
	cmdCtx := NewCommandContext(cmd)

	d, err := cmdCtx.Dashboard(dashboardID)
	if err != nil {
		return err
	}
	v, ok := d.Variable(name)
	if !ok {
		return fmt.Errorf("unknown variable %q in dashboard %s", name, d.ID)
	}
	value, err := selection(v, values, all)
	if err != nil {
		return err
	}

	var store *state.SQLiteStore
	if !noRecord {
		if store, err = openRecordingStore(cmdCtx, d); err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	eng, cleanup, err := cmdCtx.NewEngine(cmd.Context(), d, storeOrNil(store))
	if err != nil {
		return err
	}
	defer cleanup()

	initial, err := eng.RefreshAll(cmd.Context())
	if err != nil {
		return err
	}
	if failed := initial.Failed(); len(failed) > 0 {
		cmdCtx.Renderer.Warning(fmt.Sprintf("initial refresh: %v", initial.Err()))
	}

	report, err := eng.Select(cmd.Context(), name, value)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.SaveDashboard(eng.Dashboard()); err != nil {
			return err
		}
	}

	if err := renderRefresh(cmdCtx.Renderer, d.ID, report, eng.Variables()); err != nil {
		return err
	}
	return failedErr(report)
}

package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/internal/engine"
	"github.com/leapstack-labs/dashvars/internal/state"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/spf13/cobra"
)

// RefreshOutput is the JSON form of the refresh and select commands.
type RefreshOutput struct {
	Dashboard string                 `json:"dashboard"`
	Report    *engine.Report         `json:"report"`
	Variables []engine.VariableState `json:"variables"`
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand() *cobra.Command {
	var (
		dashboardID string
		noRecord    bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the options of every variable",
		Long: `Fetch the options of every variable of a dashboard in dependency order.

Custom and textbox variables resolve from their definitions. Query and
dynamic variables run against the configured source; independent
variables are fetched concurrently (see fetch.concurrency).

The dashboard, its reconciled selections and the run are stored in the
state database unless --no-record is given.`,
		Example: `  # Refresh the only dashboard
  dashvars refresh

  # Refresh against a SQLite file
  dashvars refresh -d hosts --source sqlite --dsn ./metrics.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRefresh(cmd, dashboardID, noRecord)
		},
	}
	addDashboardFlag(cmd, &dashboardID)
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not store the run in the state database")
	return cmd
}

func runRefresh(cmd *cobra.Command, dashboardID string, noRecord bool) error {
	cmdCtx := NewCommandContext(cmd)

	d, err := cmdCtx.Dashboard(dashboardID)
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

	report, err := eng.RefreshAll(cmd.Context())
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

// openRecordingStore opens the state database and saves d so runs can
// reference it. Cyclic dashboards are rejected here.
func openRecordingStore(cmdCtx *CommandContext, d *core.Dashboard) (*state.SQLiteStore, error) {
	store, err := cmdCtx.OpenStore()
	if err != nil {
		return nil, err
	}
	if err := store.SaveDashboard(d); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// storeOrNil avoids handing the engine a typed nil interface.
func storeOrNil(s *state.SQLiteStore) core.Store {
	if s == nil {
		return nil
	}
	return s
}

func failedErr(report *engine.Report) error {
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d variable(s) failed to refresh: %w", len(failed), report.Err())
	}
	return nil
}

func renderRefresh(r *output.Renderer, dashboardID string, report *engine.Report, vars []engine.VariableState) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(RefreshOutput{Dashboard: dashboardID, Report: report, Variables: vars})
	}

	title := "Refresh: " + dashboardID
	if report.Trigger != engine.TriggerAll {
		title = fmt.Sprintf("Select: %s (%s)", dashboardID, report.Trigger)
	}
	r.Header(1, title)

	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, []string{
			v.Name,
			output.KindLabel(v.Kind),
			string(v.State),
			formatSelection(v),
			formatOptions(v.Options),
			v.Error,
		})
	}
	r.Table([]string{"Variable", "Type", "State", "Selected", "Options", "Error"}, rows)
	r.Println("")

	summary := fmt.Sprintf("%d fetched, %d failed in %s", len(report.Fetches), len(report.Failed()), report.Duration.Round(time.Millisecond))
	if report.RunID != "" {
		summary += ", run " + report.RunID
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Summary", summary))
		return nil
	}
	if len(report.Failed()) > 0 {
		r.Warning(summary)
	} else {
		r.Success(summary)
	}
	return nil
}

// maxOptionsShown limits the options listed per variable.
const maxOptionsShown = 5

func formatOptions(options []string) string {
	if len(options) <= maxOptionsShown {
		return strings.Join(options, ", ")
	}
	return fmt.Sprintf("%s, … (+%d)", strings.Join(options[:maxOptionsShown], ", "), len(options)-maxOptionsShown)
}

func formatSelection(v engine.VariableState) string {
	if v.AllSelected {
		return "ALL"
	}
	switch sel := v.Selected.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(sel))
		for i, s := range sel {
			parts[i] = fmt.Sprint(s)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(sel)
	}
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/internal/state"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/spf13/cobra"
)

// RunDetail is the JSON form of runs --id.
type RunDetail struct {
	Run     *core.Run             `json:"run"`
	Fetches []*core.VariableFetch `json:"fetches"`
	Stats   state.Stats           `json:"stats"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var (
		dashboardID string
		limit       int
		runID       string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show refresh history",
		Long: `List recorded refresh runs, newest first.

Use --id to show the variable fetches of a single run.`,
		Example: `  # Last runs of every dashboard
  dashvars runs

  # Last 5 runs of one dashboard
  dashvars runs -d hosts --limit 5

  # Fetches of a run
  dashvars runs --id 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID != "" {
				return runRunDetail(cmd, runID)
			}
			return runRuns(cmd, dashboardID, limit)
		},
	}
	cmd.Flags().StringVarP(&dashboardID, "dashboard", "d", "", "Only runs of this dashboard")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 for all)")
	cmd.Flags().StringVar(&runID, "id", "", "Show the fetches of one run")
	return cmd
}

func openExistingStore(cmdCtx *CommandContext) (*state.SQLiteStore, error) {
	if _, err := os.Stat(cmdCtx.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("no state database at %s\nHint: Run 'dashvars refresh' first", cmdCtx.Cfg.StatePath)
	}
	return cmdCtx.OpenStore()
}

func runRuns(cmd *cobra.Command, dashboardID string, limit int) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openExistingStore(cmdCtx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(dashboardID, limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*core.Run{}
		}
		return r.JSON(runs)
	}

	r.Header(1, fmt.Sprintf("Runs (%d)", len(runs)))
	if len(runs) == 0 {
		r.Muted("No runs recorded.")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.DashboardID,
			run.Trigger,
			string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runDuration(run),
			run.Error,
		})
	}
	r.Table([]string{"ID", "Dashboard", "Trigger", "Status", "Started", "Duration", "Error"}, rows)
	return nil
}

func runDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return ""
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func runRunDetail(cmd *cobra.Command, runID string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := openExistingStore(cmdCtx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetRun(runID)
	if errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return err
	}
	fetches, err := store.GetFetchesForRun(runID)
	if err != nil {
		return err
	}
	stats, err := store.RunStats(runID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if fetches == nil {
			fetches = []*core.VariableFetch{}
		}
		return r.JSON(RunDetail{Run: run, Fetches: fetches, Stats: stats})
	}

	r.Header(1, "Run "+run.ID)
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Dashboard", run.DashboardID))
		r.Println(output.FormatKeyValue("Trigger", run.Trigger))
		r.Println(output.FormatKeyValue("Status", string(run.Status)))
		r.Println("")
	} else {
		styles := r.Styles()
		r.Printf("  %s %s\n", styles.Muted.Render("dashboard:"), run.DashboardID)
		r.Printf("  %s %s\n", styles.Muted.Render("trigger:"), run.Trigger)
		r.Printf("  %s %s\n", styles.Muted.Render("status:"), styles.StateStyle(string(run.Status)).Render(string(run.Status)))
		r.Println("")
	}

	rows := make([][]string, 0, len(fetches))
	for _, f := range fetches {
		rows = append(rows, []string{
			f.Variable,
			fmt.Sprint(f.CycleID),
			string(f.Status),
			fmt.Sprint(f.ValueCount),
			fmt.Sprintf("%dms", f.ExecutionMS),
			f.Error,
		})
	}
	r.Table([]string{"Variable", "Cycle", "Status", "Values", "Time", "Error"}, rows)
	r.Println("")
	r.Muted(fmt.Sprintf("%d fetches: %d succeeded, %d failed, %d stale", stats.Total, stats.Success, stats.Failed, stats.Stale))
	return nil
}

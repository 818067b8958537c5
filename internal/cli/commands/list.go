package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/spf13/cobra"
)

// DashboardInfo is one row of the list command.
type DashboardInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Variables int    `json:"variables"`
	Cycle     bool   `json:"cycle"`
	Path      string `json:"path,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var stored bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dashboards",
		Long: `List the dashboards of the dashboards directory, or with --stored the
dashboards saved in the state database.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List dashboards on disk
  dashvars list

  # List saved dashboards as JSON
  dashvars list --stored --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if stored {
				return runListStored(cmd)
			}
			return runList(cmd)
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "List dashboards saved in the state database")
	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	result, err := cmdCtx.LoadDashboards()
	if err != nil {
		return err
	}

	infos := make([]DashboardInfo, 0, len(result.Dashboards))
	for _, d := range result.Dashboards {
		infos = append(infos, DashboardInfo{
			ID:        d.ID,
			Title:     d.Title,
			Variables: len(d.Variables),
			Cycle:     dag.NewDependencyContext(d.Variables).HasCycle(),
			Path:      d.Path,
		})
	}
	return renderList(cmdCtx.Renderer, fmt.Sprintf("Dashboards (%d total)", len(infos)), infos, false)
}

func runListStored(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	if _, err := os.Stat(cmdCtx.Cfg.StatePath); err != nil {
		return fmt.Errorf("no state database at %s\nHint: Run 'dashvars save' first", cmdCtx.Cfg.StatePath)
	}
	store, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := store.ListDashboards()
	if err != nil {
		return err
	}
	infos := make([]DashboardInfo, 0, len(summaries))
	for _, s := range summaries {
		infos = append(infos, DashboardInfo{
			ID:        s.ID,
			Title:     s.Title,
			Variables: s.VariableCount,
			UpdatedAt: s.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return renderList(cmdCtx.Renderer, fmt.Sprintf("Stored Dashboards (%d total)", len(infos)), infos, true)
}

func renderList(r *output.Renderer, title string, infos []DashboardInfo, stored bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, title)
	if len(infos) == 0 {
		r.Muted("No dashboards found.")
		return nil
	}

	header := []string{"ID", "Title", "Variables", "Status", "Path"}
	if stored {
		header = []string{"ID", "Title", "Variables", "Updated"}
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		if stored {
			rows = append(rows, []string{info.ID, info.Title, fmt.Sprint(info.Variables), info.UpdatedAt})
			continue
		}
		status := "ok"
		if info.Cycle {
			status = "cycle"
		}
		rows = append(rows, []string{info.ID, info.Title, fmt.Sprint(info.Variables), status, info.Path})
	}
	r.Table(header, rows)
	return nil
}

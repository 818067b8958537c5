package commands

import (
	"fmt"

	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/spf13/cobra"
)

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save [dashboard...]",
		Short: "Store dashboards in the state database",
		Long: `Save dashboards from the dashboards directory into the state database.

Dashboards with circular variable dependencies are refused. Without
arguments every dashboard is saved.`,
		Example: `  # Save every dashboard
  dashvars save

  # Save one dashboard
  dashvars save hosts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, args)
		},
	}
}

func runSave(cmd *cobra.Command, ids []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	result, err := cmdCtx.LoadDashboards()
	if err != nil {
		return err
	}
	dashboards := result.Dashboards
	if len(ids) > 0 {
		dashboards = make([]*core.Dashboard, 0, len(ids))
		for _, id := range ids {
			d, ok := result.Get(id)
			if !ok {
				return fmt.Errorf("dashboard %q not found", id)
			}
			dashboards = append(dashboards, d)
		}
	}

	store, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	saved := make([]string, 0, len(dashboards))
	failed := 0
	for _, d := range dashboards {
		if err := store.SaveDashboard(d); err != nil {
			failed++
			r.Error(err.Error())
			continue
		}
		saved = append(saved, d.ID)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(map[string]any{"saved": saved, "failed": failed}); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatKeyValue("Saved", joinOrNone(saved)))
	default:
		for _, id := range saved {
			r.Success("saved " + id)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d dashboard(s) could not be saved", failed)
	}
	return nil
}

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/spf13/cobra"
)

// CheckResult is the cycle check outcome of one dashboard.
type CheckResult struct {
	ID        string   `json:"id"`
	OK        bool     `json:"ok"`
	Variables int      `json:"variables"`
	Edges     int      `json:"edges"`
	Cycle     []string `json:"cycle,omitempty"`
	Unreached []string `json:"unreached,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [dashboard...]",
		Short: "Check dashboards for circular variable dependencies",
		Long: `Build the dependency graph of every dashboard and report cycles.

Exits with an error when any dashboard contains a cycle.`,
		Example: `  # Check every dashboard
  dashvars check

  # Check specific dashboards
  dashvars check hosts services`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}
}

func runCheck(cmd *cobra.Command, ids []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	result, err := cmdCtx.LoadDashboards()
	if err != nil {
		return err
	}

	dashboards := result.Dashboards
	if len(ids) > 0 {
		dashboards = dashboards[:0:0]
		for _, id := range ids {
			d, ok := result.Get(id)
			if !ok {
				return fmt.Errorf("dashboard %q not found", id)
			}
			dashboards = append(dashboards, d)
		}
	}

	results := make([]CheckResult, 0, len(dashboards))
	failed := 0
	for _, d := range dashboards {
		res := checkDashboard(d)
		if !res.OK {
			failed++
		}
		results = append(results, res)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(results); err != nil {
			return err
		}
	case output.ModeMarkdown:
		checkMarkdown(r, results)
	default:
		checkText(r, results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d dashboards have circular dependencies", failed, len(results))
	}
	return nil
}

func checkDashboard(d *core.Dashboard) CheckResult {
	deps := dag.NewDependencyContext(d.Variables)
	res := CheckResult{
		ID:        d.ID,
		OK:        true,
		Variables: len(d.Variables),
		Edges:     deps.Graph.EdgeCount(),
	}
	var ce *dag.CycleError
	if errors.As(deps.Err(), &ce) {
		res.OK = false
		res.Cycle = ce.Path
		res.Unreached = ce.Unreached
	}
	return res
}

func checkText(r *output.Renderer, results []CheckResult) {
	styles := r.Styles()
	r.Header(1, "Dependency Check")
	for _, res := range results {
		if res.OK {
			r.Success(fmt.Sprintf("%s %s", res.ID,
				styles.Muted.Render(fmt.Sprintf("(%d variables, %d dependencies)", res.Variables, res.Edges))))
			continue
		}
		r.Println(styles.Error.Render(fmt.Sprintf("%s %s: cycle %s", output.IconError, res.ID, cyclePath(res))))
	}
}

func checkMarkdown(r *output.Renderer, results []CheckResult) {
	r.Println(output.FormatHeader(1, "Dependency Check"))
	r.Println("")
	for _, res := range results {
		if res.OK {
			r.Println(output.FormatKeyValue(res.ID, fmt.Sprintf("ok (%d variables, %d dependencies)", res.Variables, res.Edges)))
			continue
		}
		r.Println(output.FormatKeyValue(res.ID, "cycle "+cyclePath(res)))
	}
}

func cyclePath(res CheckResult) string {
	if len(res.Cycle) > 0 {
		return strings.Join(res.Cycle, " "+output.IconArrow+" ")
	}
	return strings.Join(res.Unreached, ", ")
}

package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/spf13/cobra"
)

// PropagateOutput is the JSON form of the propagate command.
type PropagateOutput struct {
	Dashboard string   `json:"dashboard"`
	Variable  string   `json:"variable"`
	Affected  []string `json:"affected"`
	Pending   []string `json:"pending"`
}

// NewPropagateCommand creates the propagate command.
func NewPropagateCommand() *cobra.Command {
	var dashboardID string

	cmd := &cobra.Command{
		Use:   "propagate <variable>",
		Short: "Show what a change to a variable refreshes",
		Long: `List the variables affected when the selection of a variable changes.

Affected variables are the changed variable and everything reachable from
it, in topological order. Pending variables are the query variables among
them that are refetched.`,
		Example: `  # What does changing env refresh?
  dashvars propagate env -d hosts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropagate(cmd, dashboardID, args[0])
		},
	}
	addDashboardFlag(cmd, &dashboardID)
	return cmd
}

func runPropagate(cmd *cobra.Command, dashboardID, name string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	d, err := cmdCtx.Dashboard(dashboardID)
	if err != nil {
		return err
	}
	if _, ok := d.Variable(name); !ok {
		return fmt.Errorf("unknown variable %q in dashboard %s", name, d.ID)
	}

	deps := dag.NewDependencyContext(d.Variables)
	if err := deps.Err(); err != nil {
		return err
	}

	out := propagation(d, deps, name)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Propagation: "+name))
		r.Println("")
		r.Println(output.FormatKeyValue("Affected", joinOrNone(out.Affected)))
		r.Println(output.FormatKeyValue("Pending", joinOrNone(out.Pending)))
	default:
		styles := r.Styles()
		r.Header(1, "Propagation: "+name)
		r.Printf("  %s %s\n", styles.Muted.Render("affected:"), strings.Join(out.Affected, " "+output.IconArrow+" "))
		if len(out.Pending) == 0 {
			r.Muted("  nothing to refetch")
			return nil
		}
		for _, p := range out.Pending {
			r.Printf("  %s %s\n", output.IconPending, styles.Variable.Render(p))
		}
	}
	return nil
}

func propagation(d *core.Dashboard, deps *dag.DependencyContext, name string) PropagateOutput {
	kinds := d.Kinds()
	out := PropagateOutput{Dashboard: d.ID, Variable: name, Affected: []string{}, Pending: []string{}}
	deps.Propagate(name, func(id string) {
		out.Affected = append(out.Affected, id)
		if id != name && kinds[id] == core.KindQuery {
			out.Pending = append(out.Pending, id)
		}
	})
	return out
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/spf13/cobra"
)

// OrderOutput is the JSON form of the order command.
type OrderOutput struct {
	Dashboard string     `json:"dashboard"`
	Order     []string   `json:"order"`
	Levels    [][]string `json:"levels"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand() *cobra.Command {
	var dashboardID string

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Show the order variables are fetched in",
		Long: `Display the topological order of a dashboard's variables.

Variables are also grouped into levels: every variable of a level depends
only on variables of earlier levels, so a level can be fetched at once.`,
		Example: `  # Show the fetch order
  dashvars order -d hosts

  # Output as JSON
  dashvars order -d hosts --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOrder(cmd, dashboardID)
		},
	}
	addDashboardFlag(cmd, &dashboardID)
	return cmd
}

func runOrder(cmd *cobra.Command, dashboardID string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	d, err := cmdCtx.Dashboard(dashboardID)
	if err != nil {
		return err
	}

	deps := dag.NewDependencyContext(d.Variables)
	if err := deps.Err(); err != nil {
		return err
	}
	levels, err := deps.Graph.Levels()
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(OrderOutput{Dashboard: d.ID, Order: deps.Order, Levels: levels})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Fetch Order: "+d.ID))
		r.Println("")
		for i, name := range deps.Order {
			r.Printf("%d. %s\n", i+1, name)
		}
		r.Println("")
		r.Println(output.FormatHeader(2, "Levels"))
		for i, level := range levels {
			r.Println(output.FormatKeyValue(fmt.Sprintf("Level %d", i), strings.Join(level, ", ")))
		}
	default:
		styles := r.Styles()
		r.Header(1, "Fetch Order: "+d.ID)
		for i, name := range deps.Order {
			v, _ := d.Variable(name)
			r.Printf("  %2d. %s %s\n", i+1, styles.Variable.Render(name), styles.Kind.Render(output.KindLabel(v.Kind)))
		}
		r.Println("")
		for i, level := range levels {
			r.Printf("  %s %s\n", styles.Header2.Render(fmt.Sprintf("Level %d:", i)), strings.Join(level, ", "))
		}
	}
	return nil
}

package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/spf13/cobra"
)

// GraphNode is one variable of the graph command's JSON output.
type GraphNode struct {
	Name      string   `json:"name"`
	Kind      string   `json:"type"`
	DependsOn []string `json:"depends_on"`
	UsedBy    []string `json:"used_by"`
}

// GraphOutput is the JSON form of the graph command.
type GraphOutput struct {
	Dashboard string      `json:"dashboard"`
	Variables []GraphNode `json:"variables"`
	Edges     int         `json:"edges"`
	Cycle     []string    `json:"cycle,omitempty"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var (
		dashboardID string
		dot         bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the variable dependency graph",
		Long: `Display which variables each variable depends on and is used by.

A variable depends on every variable its query references with {{.name}},
{{name}}, [[name]] or $name. Use --dot for Graphviz output.`,
		Example: `  # Show the graph
  dashvars graph -d hosts

  # Render with Graphviz
  dashvars graph -d hosts --dot | dot -Tsvg > hosts.svg`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd, dashboardID, dot)
		},
	}
	addDashboardFlag(cmd, &dashboardID)
	cmd.Flags().BoolVar(&dot, "dot", false, "Output in Graphviz DOT format")
	return cmd
}

func runGraph(cmd *cobra.Command, dashboardID string, dot bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	d, err := cmdCtx.Dashboard(dashboardID)
	if err != nil {
		return err
	}
	deps := dag.NewDependencyContext(d.Variables)

	if dot {
		r.Printf("%s", graphDOT(d, deps))
		return nil
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(graphJSON(d, deps))
	case output.ModeMarkdown:
		graphMarkdown(r, d, deps)
	default:
		graphText(r, d, deps)
	}
	return nil
}

// graphNames lists variables in topological order, followed by any that
// a cycle left unordered.
func graphNames(deps *dag.DependencyContext) []string {
	return append(append([]string(nil), deps.Order...), deps.Result.Unreached...)
}

func graphText(r *output.Renderer, d *core.Dashboard, deps *dag.DependencyContext) {
	styles := r.Styles()
	r.Header(1, "Dependency Graph: "+d.ID)

	for _, name := range graphNames(deps) {
		v, _ := d.Variable(name)
		r.Printf("  %s %s\n", styles.Variable.Render(name), styles.Kind.Render(output.KindLabel(v.Kind)))
		if parents := deps.ParentsOf(name); len(parents) > 0 {
			r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(parents, ", "))
		}
		if children := deps.ChildrenOf(name); len(children) > 0 {
			r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(children, ", "))
		}
	}
	r.Println("")

	if err := deps.Err(); err != nil {
		r.Error(err.Error())
	}
	r.Muted(fmt.Sprintf("Total: %d variables, %d dependencies", deps.Graph.NodeCount(), deps.Graph.EdgeCount()))
}

func graphMarkdown(r *output.Renderer, d *core.Dashboard, deps *dag.DependencyContext) {
	r.Println(output.FormatHeader(1, "Dependency Graph: "+d.ID))
	r.Println("")

	for _, name := range graphNames(deps) {
		v, _ := d.Variable(name)
		r.Printf("- %s (%s)\n", name, output.KindLabel(v.Kind))
		if parents := deps.ParentsOf(name); len(parents) > 0 {
			r.Printf("  - depends on: %s\n", strings.Join(parents, ", "))
		}
		if children := deps.ChildrenOf(name); len(children) > 0 {
			r.Printf("  - used by: %s\n", strings.Join(children, ", "))
		}
	}
	r.Println("")

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Variables", fmt.Sprintf("%d", deps.Graph.NodeCount())))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", deps.Graph.EdgeCount())))
	if err := deps.Err(); err != nil {
		r.Println(output.FormatKeyValue("Cycle", err.Error()))
	}
}

func graphJSON(d *core.Dashboard, deps *dag.DependencyContext) GraphOutput {
	out := GraphOutput{
		Dashboard: d.ID,
		Variables: make([]GraphNode, 0, len(d.Variables)),
		Edges:     deps.Graph.EdgeCount(),
	}
	for _, name := range graphNames(deps) {
		v, _ := d.Variable(name)
		node := GraphNode{
			Name:      name,
			Kind:      v.Kind.String(),
			DependsOn: deps.ParentsOf(name),
			UsedBy:    deps.ChildrenOf(name),
		}
		if node.DependsOn == nil {
			node.DependsOn = []string{}
		}
		if node.UsedBy == nil {
			node.UsedBy = []string{}
		}
		out.Variables = append(out.Variables, node)
	}
	if deps.HasCycle() {
		out.Cycle = deps.Result.CycleNodes
	}
	return out
}

// graphDOT renders the graph with edges pointing from a variable to its
// dependents.
func graphDOT(d *core.Dashboard, deps *dag.DependencyContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", d.ID)
	b.WriteString("  rankdir=LR;\n")
	for _, name := range graphNames(deps) {
		v, _ := d.Variable(name)
		fmt.Fprintf(&b, "  %q [label=%q];\n", name, name+"\n"+output.KindLabel(v.Kind))
	}
	for _, name := range graphNames(deps) {
		for _, child := range deps.ChildrenOf(name) {
			fmt.Fprintf(&b, "  %q -> %q;\n", name, child)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

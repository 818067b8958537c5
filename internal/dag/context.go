package dag

import (
	"sort"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// DependencyContext is the derived dependency state of one variable set.
// It is built once and never mutated, so it can be shared between goroutines.
// Rebuild it whenever a variable is added, removed or has its query edited.
type DependencyContext struct {
	Graph   *Graph
	Parents *Graph
	Order   []string
	Result  Result

	descendants map[string][]string
}

// NewDependencyContext builds the dependency context of a variable set.
func NewDependencyContext(vars []core.Variable) *DependencyContext {
	return NewDependencyContextFromGraph(BuildDependencies(vars))
}

// NewDependencyContextFromGraph builds a context around an existing graph.
func NewDependencyContextFromGraph(g *Graph) *DependencyContext {
	result := BuildDependencyGraph(g)
	dc := &DependencyContext{
		Graph:       result.Graph,
		Parents:     BuildParentDependencyGraph(result.Graph),
		Order:       result.Order,
		Result:      result,
		descendants: make(map[string][]string),
	}

	// Unreached nodes sort after the ordered ones, in insertion order.
	position := make(map[string]int, result.Graph.NodeCount())
	for i, id := range result.Order {
		position[id] = i
	}
	for i, id := range result.Unreached {
		position[id] = len(result.Order) + i
	}

	for _, id := range result.Graph.Nodes() {
		desc := result.Graph.Descendants(id)
		sort.SliceStable(desc, func(i, j int) bool {
			return position[desc[i]] < position[desc[j]]
		})
		dc.descendants[id] = desc
	}
	return dc
}

// HasCycle reports whether the variable set contains a cycle.
func (dc *DependencyContext) HasCycle() bool {
	return dc.Result.HasCycle()
}

// Err returns the *CycleError describing a cycle, or nil.
func (dc *DependencyContext) Err() error {
	return dc.Result.Err()
}

// Propagate calls fn for name and every variable that must be refreshed
// after it, in topological order.
func (dc *DependencyContext) Propagate(name string, fn func(string)) {
	OnUpdateVariableNode(name, dc.Graph, dc.Order, fn)
}

// Affected returns the propagation sequence of name as a slice.
func (dc *DependencyContext) Affected(name string) []string {
	var out []string
	dc.Propagate(name, func(id string) {
		out = append(out, id)
	})
	return out
}

// ShouldFetch applies the invocation gate to name against a pending queue.
func (dc *DependencyContext) ShouldFetch(queue []string, name string) bool {
	return CheckAPIInvocation(queue, name, dc.Parents)
}

// ParentsOf returns the variables name depends on.
func (dc *DependencyContext) ParentsOf(name string) []string {
	return dc.Parents.Children(name)
}

// ChildrenOf returns the variables depending directly on name.
func (dc *DependencyContext) ChildrenOf(name string) []string {
	return dc.Graph.Children(name)
}

// DescendantsOf returns every variable depending on name, directly or not,
// in topological order.
func (dc *DependencyContext) DescendantsOf(name string) []string {
	desc := dc.descendants[name]
	out := make([]string, len(desc))
	copy(out, desc)
	return out
}

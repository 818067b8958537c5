package dag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/dashvars/pkg/core"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("circular dependency")

// CycleError reports variables that can never be ordered.
type CycleError struct {
	// Path is one concrete cycle; the first node is repeated at the end.
	Path []string
	// Unreached lists every node left out of the topological order.
	Unreached []string
}

func (e *CycleError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("circular dependency detected between variables: %s", strings.Join(e.Path, " → "))
	}
	return fmt.Sprintf("circular dependency detected between variables: %s", strings.Join(e.Unreached, ", "))
}

// Is makes errors.Is(err, ErrCycle) true.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Result is the outcome of BuildDependencyGraph.
type Result struct {
	// Order is the topological order. It is complete only when no cycle exists.
	Order []string
	// Graph is the adjacency list the order was computed from.
	Graph *Graph
	// Unreached holds the nodes Kahn's algorithm never emitted.
	Unreached []string
	// CycleNodes is one cycle path through the unreached nodes.
	CycleNodes []string
}

// HasCycle reports whether the order is incomplete.
func (r Result) HasCycle() bool {
	return len(r.Unreached) > 0
}

// Err returns a *CycleError when a cycle was detected, nil otherwise.
func (r Result) Err() error {
	if !r.HasCycle() {
		return nil
	}
	return &CycleError{Path: r.CycleNodes, Unreached: r.Unreached}
}

// BuildDependencies builds the dependency graph of a variable set.
// Every variable gets an entry holding the variables that reference it.
func BuildDependencies(vars []core.Variable) *Graph {
	g := NewGraph()
	for _, v := range vars {
		if v.Name == "" {
			continue
		}
		g.AddNode(v.Name)
	}
	for _, v := range vars {
		if v.Name == "" {
			continue
		}
		g.SetChildren(v.Name, Dependents(v.Name, vars))
	}
	return g
}

// BuildDependencyGraph computes a topological order with Kahn's algorithm.
// Ties between ready nodes are broken by the input's insertion order.
// A cycle is reported through the Result instead of an error so that
// callers decide what to refuse.
func BuildDependencyGraph(g *Graph) Result {
	adj := NewGraph()
	inDegree := make(map[string]int)

	for _, id := range g.Nodes() {
		adj.AddNode(id)
	}
	for _, id := range g.Nodes() {
		for _, child := range g.Children(id) {
			adj.AddEdge(id, child)
		}
	}
	for _, id := range adj.keys {
		for _, child := range adj.edges[id] {
			inDegree[child]++
		}
	}

	queue := make([]string, 0, len(adj.keys))
	for _, id := range adj.keys {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(adj.keys))
	for head := 0; head < len(queue); head++ {
		id := queue[head]
		order = append(order, id)
		for _, child := range adj.edges[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	result := Result{Order: order, Graph: adj}
	if len(order) < adj.NodeCount() {
		emitted := make(map[string]bool, len(order))
		for _, id := range order {
			emitted[id] = true
		}
		for _, id := range adj.keys {
			if !emitted[id] {
				result.Unreached = append(result.Unreached, id)
			}
		}
		_, result.CycleNodes = adj.HasCycle()
	}
	return result
}

// BuildParentDependencyGraph inverts a graph: the result lists, for every
// node, the nodes with an edge into it. Defined for cyclic graphs too.
func BuildParentDependencyGraph(g *Graph) *Graph {
	parents := NewGraph()
	for _, id := range g.Nodes() {
		parents.AddNode(id)
	}
	for _, id := range g.Nodes() {
		for _, child := range g.Children(id) {
			parents.AddEdge(child, id)
		}
	}
	return parents
}

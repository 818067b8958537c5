// Package dag models how dashboard variables depend on each other.
// It supports reference extraction, cycle detection, topological ordering,
// update propagation and the invocation gate that serialises dependent fetches.
package dag

// Graph is a directed graph keyed by variable name.
//
// Edges run from a variable to the variables that must be refreshed after it.
// Node insertion order is preserved so every traversal is deterministic.
// All read methods are safe on a nil *Graph.
type Graph struct {
	keys  []string
	edges map[string][]string
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

// AddNode adds a node with no edges. Existing nodes are left untouched.
func (g *Graph) AddNode(id string) {
	if _, exists := g.edges[id]; exists {
		return
	}
	g.keys = append(g.keys, id)
	g.edges[id] = []string{}
}

// AddEdge adds a directed edge from one node to another, creating either
// node if needed. Duplicate edges are ignored; self-loops are kept so that
// cycle detection can report them.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if !contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
}

// SetChildren replaces the outgoing edges of a node.
func (g *Graph) SetChildren(id string, children []string) {
	g.AddNode(id)
	g.edges[id] = []string{}
	for _, child := range children {
		g.AddEdge(id, child)
	}
}

// Has reports whether the node exists.
func (g *Graph) Has(id string) bool {
	if g == nil {
		return false
	}
	_, ok := g.edges[id]
	return ok
}

// Nodes returns all node IDs in insertion order.
func (g *Graph) Nodes() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// Children returns the direct successors of a node.
func (g *Graph) Children(id string) []string {
	if g == nil {
		return nil
	}
	children := g.edges[id]
	if len(children) == 0 {
		return nil
	}
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return len(g.keys)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool {
	return g.NodeCount() == 0
}

// Map returns a copy of the adjacency lists.
func (g *Graph) Map() map[string][]string {
	if g == nil {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(g.keys))
	for _, id := range g.keys {
		children := make([]string, len(g.edges[id]))
		copy(children, g.edges[id])
		out[id] = children
	}
	return out
}

// HasCycle returns true if the graph contains a cycle, along with one cycle
// path. The path starts and ends with the same node.
func (g *Graph) HasCycle() (bool, []string) {
	if g == nil {
		return false, nil
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.keys {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Levels groups nodes into waves: level 0 has no incoming edges and every
// node of level N depends only on nodes of earlier levels.
// Returns a *CycleError if some nodes can never be placed.
func (g *Graph) Levels() ([][]string, error) {
	if g == nil {
		return nil, nil
	}

	inDegree := g.inDegrees()
	var current []string
	for _, id := range g.keys {
		if inDegree[id] == 0 {
			current = append(current, id)
		}
	}

	var levels [][]string
	placed := 0
	for len(current) > 0 {
		levels = append(levels, current)
		placed += len(current)

		var next []string
		for _, id := range current {
			for _, child := range g.edges[id] {
				inDegree[child]--
				if inDegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		current = next
	}

	if placed != len(g.keys) {
		_, path := g.HasCycle()
		return levels, &CycleError{Path: path, Unreached: g.unplaced(levels)}
	}
	return levels, nil
}

// Descendants returns every node reachable from id, excluding id itself,
// in breadth-first discovery order.
func (g *Graph) Descendants(id string) []string {
	if !g.Has(id) {
		return nil
	}

	seen := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range g.edges[curr] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// Roots returns nodes with no incoming edges, in insertion order.
func (g *Graph) Roots() []string {
	if g == nil {
		return nil
	}
	inDegree := g.inDegrees()
	var roots []string
	for _, id := range g.keys {
		if inDegree[id] == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns nodes with no outgoing edges, in insertion order.
func (g *Graph) Leaves() []string {
	if g == nil {
		return nil
	}
	var leaves []string
	for _, id := range g.keys {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

func (g *Graph) inDegrees() map[string]int {
	inDegree := make(map[string]int, len(g.keys))
	for _, id := range g.keys {
		for _, child := range g.edges[id] {
			inDegree[child]++
		}
	}
	return inDegree
}

func (g *Graph) unplaced(levels [][]string) []string {
	placed := make(map[string]bool)
	for _, level := range levels {
		for _, id := range level {
			placed[id] = true
		}
	}
	var out []string
	for _, id := range g.keys {
		if !placed[id] {
			out = append(out, id)
		}
	}
	return out
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

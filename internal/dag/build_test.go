package dag

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainVars is env (custom) -> region -> service -> host, with service also
// referencing env directly.
func chainVars() []core.Variable {
	return []core.Variable{
		{Name: "env", Kind: core.KindCustom, CustomValue: "prod,staging"},
		{Name: "region", Kind: core.KindQuery, QueryValue: "SELECT region FROM t WHERE env = {{.env}}"},
		{Name: "service", Kind: core.KindQuery, QueryValue: "SELECT svc FROM t WHERE region = $region AND env = [[env]]"},
		{Name: "host", Kind: core.KindQuery, QueryValue: "SELECT host FROM t WHERE svc = {{ service }}"},
	}
}

func graphFrom(adj map[string][]string, keys ...string) *Graph {
	g := NewGraph()
	for _, k := range keys {
		g.AddNode(k)
	}
	for _, k := range keys {
		for _, child := range adj[k] {
			g.AddEdge(k, child)
		}
	}
	return g
}

func TestBuildDependencies(t *testing.T) {
	g := BuildDependencies(chainVars())

	assert.Equal(t, []string{"env", "region", "service", "host"}, g.Nodes())
	assert.Equal(t, []string{"region", "service"}, g.Children("env"))
	assert.Equal(t, []string{"service"}, g.Children("region"))
	assert.Equal(t, []string{"host"}, g.Children("service"))
	assert.Empty(t, g.Children("host"))
	assert.True(t, g.Has("host"), "every variable gets an entry")
}

func TestBuildDependencies_SkipsUnnamed(t *testing.T) {
	g := BuildDependencies([]core.Variable{{Kind: core.KindQuery, QueryValue: "{{.a}}"}, {Name: "a", Kind: core.KindCustom}})
	assert.Equal(t, []string{"a"}, g.Nodes())
}

func TestBuildDependencyGraph_Order(t *testing.T) {
	res := BuildDependencyGraph(BuildDependencies(chainVars()))

	require.False(t, res.HasCycle())
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"env", "region", "service", "host"}, res.Order)
	assert.Empty(t, res.Unreached)
	assert.Empty(t, res.CycleNodes)
}

func TestBuildDependencyGraph_TieBreakFollowsInsertionOrder(t *testing.T) {
	g := graphFrom(map[string][]string{
		"c": {"d"},
		"a": {"d"},
		"b": {},
	}, "c", "a", "b", "d")

	res := BuildDependencyGraph(g)
	assert.Equal(t, []string{"c", "a", "b", "d"}, res.Order)
}

func TestBuildDependencyGraph_ChildOnlyNodesCounted(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.edges["a"] = []string{"ghost"} // bypass AddEdge to simulate a dangling child

	res := BuildDependencyGraph(g)
	assert.Equal(t, []string{"a", "ghost"}, res.Order)
	assert.True(t, res.Graph.Has("ghost"))
}

func TestBuildDependencyGraph_Empty(t *testing.T) {
	res := BuildDependencyGraph(NewGraph())
	assert.Empty(t, res.Order)
	assert.False(t, res.HasCycle())

	res = BuildDependencyGraph(nil)
	assert.Empty(t, res.Order)
	assert.False(t, res.HasCycle())
}

func TestBuildDependencyGraph_Cycle(t *testing.T) {
	vars := []core.Variable{
		{Name: "a", Kind: core.KindQuery, QueryValue: "SELECT 1 WHERE x = {{b}}"},
		{Name: "b", Kind: core.KindQuery, QueryValue: "SELECT 1 WHERE x = {{a}}"},
		{Name: "c", Kind: core.KindQuery, QueryValue: "SELECT 1 WHERE x = $a"},
	}

	res := BuildDependencyGraph(BuildDependencies(vars))

	require.True(t, res.HasCycle())
	assert.Less(t, len(res.Order), 3)
	assert.Equal(t, []string{"a", "b", "c"}, res.Unreached)
	assert.Equal(t, []string{"a", "b", "a"}, res.CycleNodes)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "a → b → a")
}

func TestBuildDependencyGraph_PartialCycle(t *testing.T) {
	vars := []core.Variable{
		{Name: "x", Kind: core.KindCustom},
		{Name: "a", Kind: core.KindQuery, QueryValue: "{{x}} {{b}}"},
		{Name: "b", Kind: core.KindQuery, QueryValue: "{{a}}"},
	}

	res := BuildDependencyGraph(BuildDependencies(vars))

	assert.Equal(t, []string{"x"}, res.Order)
	assert.Equal(t, []string{"a", "b"}, res.Unreached)
	assert.Equal(t, []string{"a", "b", "a"}, res.CycleNodes)
}

func TestBuildDependencyGraph_SelfReference(t *testing.T) {
	vars := []core.Variable{
		{Name: "root", Kind: core.KindCustom},
		{Name: "loop", Kind: core.KindQuery, QueryValue: "SELECT v WHERE v != $loop AND r = $root"},
	}

	res := BuildDependencyGraph(BuildDependencies(vars))

	require.True(t, res.HasCycle())
	assert.Equal(t, []string{"root"}, res.Order)
	assert.Equal(t, []string{"loop"}, res.Unreached)
	assert.Equal(t, []string{"loop", "loop"}, res.CycleNodes)
}

func TestCycleError_WithoutPath(t *testing.T) {
	err := &CycleError{Unreached: []string{"a", "b"}}
	assert.Equal(t, "circular dependency detected between variables: a, b", err.Error())
}

// randomDAG builds a graph with edges only from lower to higher rank and
// shuffles node insertion so the order cannot just echo the input.
func randomDAG(r *rand.Rand, n int) *Graph {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%02d", i)
	}
	g := NewGraph()
	for _, i := range r.Perm(n) {
		g.AddNode(ids[i])
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if r.Intn(4) == 0 {
				g.AddEdge(ids[i], ids[j])
			}
		}
	}
	return g
}

func TestBuildDependencyGraph_AcyclicProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		g := randomDAG(r, 1+r.Intn(15))
		res := BuildDependencyGraph(g)

		require.False(t, res.HasCycle())
		require.Len(t, res.Order, g.NodeCount())

		pos := make(map[string]int)
		for i, id := range res.Order {
			_, dup := pos[id]
			require.False(t, dup, "node %s emitted twice", id)
			pos[id] = i
		}
		for _, from := range g.Nodes() {
			for _, to := range g.Children(from) {
				require.Less(t, pos[from], pos[to], "edge %s -> %s out of order", from, to)
			}
		}
	}
}

func TestBuildDependencyGraph_CyclicProperty(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 100; iter++ {
		n := 2 + r.Intn(12)
		g := randomDAG(r, n)
		// close a back edge between two distinct ranks reachable by construction
		from := fmt.Sprintf("v%02d", n-1)
		to := fmt.Sprintf("v%02d", r.Intn(n-1))
		g.AddEdge(to, from)
		g.AddEdge(from, to)

		res := BuildDependencyGraph(g)
		require.True(t, res.HasCycle())
		require.Less(t, len(res.Order), g.NodeCount())
		require.NotEmpty(t, res.CycleNodes)
		require.Equal(t, res.CycleNodes[0], res.CycleNodes[len(res.CycleNodes)-1])
	}
}

func TestBuildParentDependencyGraph(t *testing.T) {
	g := BuildDependencies(chainVars())
	parents := BuildParentDependencyGraph(g)

	assert.Equal(t, g.Nodes(), parents.Nodes())
	assert.Empty(t, parents.Children("env"))
	assert.Equal(t, []string{"env"}, parents.Children("region"))
	assert.Equal(t, []string{"env", "region"}, parents.Children("service"))
	assert.Equal(t, []string{"service"}, parents.Children("host"))
}

func TestBuildParentDependencyGraph_InversionProperty(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	for iter := 0; iter < 100; iter++ {
		g := randomDAG(r, 1+r.Intn(12))
		if iter%3 == 0 && g.NodeCount() > 1 {
			nodes := g.Nodes()
			g.AddEdge(nodes[len(nodes)-1], nodes[0])
		}
		parents := BuildParentDependencyGraph(g)

		for _, x := range g.Nodes() {
			for _, y := range g.Nodes() {
				inParents := contains(parents.Children(x), y)
				inGraph := contains(g.Children(y), x)
				require.Equal(t, inGraph, inParents, "x=%s y=%s", x, y)
			}
		}
	}
}

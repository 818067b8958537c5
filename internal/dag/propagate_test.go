package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(node string, g *Graph, order []string) []string {
	out := []string{}
	OnUpdateVariableNode(node, g, order, func(id string) {
		out = append(out, id)
	})
	return out
}

func fanOutGraph() (*Graph, []string) {
	g := graphFrom(map[string][]string{
		"A": {"B"},
		"B": {"C", "D"},
	}, "A", "B", "C", "D")
	return g, []string{"A", "B", "C", "D"}
}

func TestOnUpdateVariableNode(t *testing.T) {
	g, order := fanOutGraph()

	tests := []struct {
		name  string
		node  string
		order []string
		want  []string
	}{
		{"root fans out to all descendants", "A", order, []string{"A", "B", "C", "D"}},
		{"middle node", "B", order, []string{"B", "C", "D"}},
		{"leaf node", "C", order, []string{"C"}},
		{"unknown node", "Z", order, []string{}},
		{"empty order", "A", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collect(tt.node, g, tt.order))
		})
	}
}

func TestOnUpdateVariableNode_SkipsSiblingsAndAncestors(t *testing.T) {
	g := graphFrom(map[string][]string{
		"A": {"B", "E"},
		"B": {"C"},
	}, "A", "B", "C", "E")
	order := BuildDependencyGraph(g).Order

	assert.Equal(t, []string{"A", "B", "E", "C"}, order)
	assert.Equal(t, []string{"B", "C"}, collect("B", g, order))
}

func TestOnUpdateVariableNode_DiamondCalledOnce(t *testing.T) {
	g := graphFrom(map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
	}, "a", "b", "c", "d")
	order := BuildDependencyGraph(g).Order

	assert.Equal(t, []string{"a", "b", "c", "d"}, collect("a", g, order))
	assert.Equal(t, []string{"c", "d"}, collect("c", g, order))
}

func TestOnUpdateVariableNode_NilGraph(t *testing.T) {
	assert.Equal(t, []string{"a"}, collect("a", nil, []string{"a", "b"}))
}

func TestCheckAPIInvocation(t *testing.T) {
	parents := graphFrom(map[string][]string{
		"b": {"a"},
		"c": {"b"},
	}, "a", "b", "c")

	tests := []struct {
		name    string
		queue   []string
		varName string
		parents *Graph
		want    bool
	}{
		{"no parents, empty queue", nil, "a", parents, true},
		{"no parents, other head", []string{"b", "c"}, "a", parents, true},
		{"unknown variable has no parents", []string{"b"}, "zzz", parents, true},
		{"head of queue", []string{"b", "c"}, "b", parents, true},
		{"queued but not head", []string{"b", "c"}, "c", parents, false},
		{"has parents, empty queue", nil, "b", parents, false},
		{"has parents, not queued", []string{"x"}, "b", parents, false},
		{"empty name", []string{""}, "", parents, false},
		{"empty parent graph", []string{"a"}, "a", NewGraph(), false},
		{"nil parent graph", []string{"a"}, "a", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckAPIInvocation(tt.queue, tt.varName, tt.parents))
		})
	}
}

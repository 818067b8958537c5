package dag

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyContext(t *testing.T) {
	dc := NewDependencyContext(chainVars())

	require.False(t, dc.HasCycle())
	require.NoError(t, dc.Err())
	assert.Equal(t, []string{"env", "region", "service", "host"}, dc.Order)

	assert.Equal(t, []string{"env", "region"}, dc.ParentsOf("service"))
	assert.Equal(t, []string{"region", "service"}, dc.ChildrenOf("env"))
	assert.Equal(t, []string{"region", "service", "host"}, dc.DescendantsOf("env"))
	assert.Equal(t, []string{"host"}, dc.DescendantsOf("service"))
	assert.Empty(t, dc.DescendantsOf("host"))
	assert.Empty(t, dc.DescendantsOf("unknown"))

	assert.Equal(t, []string{"region", "service", "host"}, dc.Affected("region"))
	assert.Empty(t, dc.Affected("unknown"))
}

func TestDependencyContext_DescendantsFollowTopologicalOrder(t *testing.T) {
	// BFS from a reaches d before c's child e, but e precedes d topologically.
	g := graphFrom(map[string][]string{
		"a": {"d", "c"},
		"c": {"e"},
		"e": {"d"},
	}, "a", "c", "e", "d")
	dc := NewDependencyContextFromGraph(g)

	assert.Equal(t, []string{"a", "c", "e", "d"}, dc.Order)
	assert.Equal(t, []string{"c", "e", "d"}, dc.DescendantsOf("a"))
}

func TestDependencyContext_DescendantsAreCopies(t *testing.T) {
	dc := NewDependencyContext(chainVars())
	desc := dc.DescendantsOf("env")
	desc[0] = "mutated"
	assert.Equal(t, "region", dc.DescendantsOf("env")[0])
}

func TestDependencyContext_ShouldFetch(t *testing.T) {
	dc := NewDependencyContext(chainVars())

	assert.True(t, dc.ShouldFetch(nil, "env"))
	assert.False(t, dc.ShouldFetch([]string{"service", "region"}, "region"))
	assert.True(t, dc.ShouldFetch([]string{"region", "service"}, "region"))
	assert.False(t, dc.ShouldFetch(nil, ""))
}

func TestDependencyContext_Cycle(t *testing.T) {
	dc := NewDependencyContext([]core.Variable{
		{Name: "a", Kind: core.KindQuery, QueryValue: "$b"},
		{Name: "b", Kind: core.KindQuery, QueryValue: "$a"},
	})

	assert.True(t, dc.HasCycle())
	assert.True(t, errors.Is(dc.Err(), ErrCycle))
	assert.Equal(t, []string{"b"}, dc.DescendantsOf("a"))
}

func TestDependencyContext_Empty(t *testing.T) {
	dc := NewDependencyContext(nil)

	assert.False(t, dc.HasCycle())
	assert.Empty(t, dc.Order)
	assert.False(t, dc.ShouldFetch(nil, "a"))
	assert.Empty(t, dc.Affected("a"))
}

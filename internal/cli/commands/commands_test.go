package commands

import (
	"testing"

	"github.com/leapstack-labs/dashvars/internal/cli/testutil"
	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/internal/engine"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostsDashboard() *core.Dashboard {
	return &core.Dashboard{
		ID:    "hosts",
		Title: "Hosts",
		Variables: []core.Variable{
			{Name: "env", Kind: core.KindCustom, CustomValue: "prod,dev"},
			{Name: "region", Kind: core.KindQuery, Order: 1, QueryValue: "SELECT region FROM hosts WHERE env = $env"},
			{Name: "host", Kind: core.KindQuery, Order: 2, QueryValue: "SELECT host FROM hosts WHERE region = $region"},
			{Name: "q", Kind: core.KindTextbox, Order: 3},
		},
	}
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewCheckCommand(), "check [dashboard...]", nil},
		{NewOrderCommand(), "order", []string{"dashboard"}},
		{NewGraphCommand(), "graph", []string{"dashboard", "dot"}},
		{NewPropagateCommand(), "propagate <variable>", []string{"dashboard"}},
		{NewRefreshCommand(), "refresh", []string{"dashboard", "no-record"}},
		{NewSelectCommand(), "select <variable> [value...]", []string{"dashboard", "all", "no-record"}},
		{NewSaveCommand(), "save [dashboard...]", nil},
		{NewListCommand(), "list", []string{"stored"}},
		{NewRunsCommand(), "runs", []string{"dashboard", "limit", "id"}},
		{NewServeCommand(), "serve", []string{"port", "watch", "no-record"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Long)
			assert.NotNil(t, tt.cmd.RunE)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestSelection(t *testing.T) {
	single := &core.Variable{Name: "env"}
	multi := &core.Variable{Name: "host", MultiSelect: true}

	tests := []struct {
		name    string
		v       *core.Variable
		values  []string
		all     bool
		want    any
		wantErr string
	}{
		{name: "single value", v: single, values: []string{"prod"}, want: "prod"},
		{name: "multi values", v: multi, values: []string{"h1", "h2"}, want: []any{"h1", "h2"}},
		{name: "multi single value", v: multi, values: []string{"h1"}, want: []any{"h1"}},
		{name: "all", v: multi, all: true, want: core.AllSelectedValue},
		{name: "all with values", v: multi, values: []string{"h1"}, all: true, wantErr: "--all cannot be combined"},
		{name: "no value", v: single, wantErr: "no value given for env"},
		{name: "too many values", v: single, values: []string{"a", "b"}, wantErr: "not multi-select"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selection(tt.v, tt.values, tt.all)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatOptions(t *testing.T) {
	assert.Equal(t, "", formatOptions(nil))
	assert.Equal(t, "a, b", formatOptions([]string{"a", "b"}))
	assert.Equal(t, "1, 2, 3, 4, 5, … (+2)", formatOptions([]string{"1", "2", "3", "4", "5", "6", "7"}))
}

func TestFormatSelection(t *testing.T) {
	tests := []struct {
		name string
		v    engine.VariableState
		want string
	}{
		{"none", engine.VariableState{}, ""},
		{"scalar", engine.VariableState{Selected: "prod"}, "prod"},
		{"number", engine.VariableState{Selected: float64(3)}, "3"},
		{"list", engine.VariableState{Selected: []any{"h1", "h2"}}, "h1, h2"},
		{"all", engine.VariableState{Selected: core.AllSelectedValue, AllSelected: true}, "ALL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSelection(tt.v))
		})
	}
}

func TestPropagation(t *testing.T) {
	d := hostsDashboard()
	deps := dag.NewDependencyContext(d.Variables)
	require.NoError(t, deps.Err())

	out := propagation(d, deps, "env")
	assert.Equal(t, []string{"env", "region", "host"}, out.Affected)
	assert.Equal(t, []string{"region", "host"}, out.Pending)

	out = propagation(d, deps, "host")
	assert.Equal(t, []string{"host"}, out.Affected)
	assert.Empty(t, out.Pending)
	assert.NotNil(t, out.Pending)

	assert.Equal(t, "none", joinOrNone(nil))
	assert.Equal(t, "a, b", joinOrNone([]string{"a", "b"}))
}

func TestGraphDOT(t *testing.T) {
	d := hostsDashboard()
	deps := dag.NewDependencyContext(d.Variables)

	dot := graphDOT(d, deps)
	assert.Contains(t, dot, `digraph "hosts" {`)
	assert.Contains(t, dot, `"env" -> "region";`)
	assert.Contains(t, dot, `"region" -> "host";`)
	assert.Contains(t, dot, `"q" [label="q\nTextbox"];`)
	assert.NotContains(t, dot, `"q" ->`)
}

func TestGraphJSON(t *testing.T) {
	d := hostsDashboard()
	out := graphJSON(d, dag.NewDependencyContext(d.Variables))

	assert.Equal(t, "hosts", out.Dashboard)
	assert.Equal(t, 2, out.Edges)
	assert.Empty(t, out.Cycle)
	require.Len(t, out.Variables, 4)
	for _, node := range out.Variables {
		assert.NotNil(t, node.DependsOn, node.Name)
		assert.NotNil(t, node.UsedBy, node.Name)
		if node.Name == "region" {
			assert.Equal(t, []string{"env"}, node.DependsOn)
			assert.Equal(t, []string{"host"}, node.UsedBy)
		}
	}
}

func TestCheckDashboard(t *testing.T) {
	res := checkDashboard(hostsDashboard())
	assert.True(t, res.OK)
	assert.Equal(t, 4, res.Variables)
	assert.Equal(t, 2, res.Edges)

	loop := &core.Dashboard{ID: "loop", Variables: []core.Variable{
		{Name: "a", Kind: core.KindQuery, QueryValue: "SELECT $b"},
		{Name: "b", Kind: core.KindQuery, QueryValue: "SELECT $a"},
	}}
	res = checkDashboard(loop)
	assert.False(t, res.OK)
	assert.NotEmpty(t, cyclePath(res))
}

func TestRenderList(t *testing.T) {
	infos := []DashboardInfo{
		{ID: "hosts", Title: "Hosts", Variables: 3, Path: "dashboards/hosts.yaml"},
		{ID: "loop", Title: "Loop", Variables: 2, Cycle: true},
	}

	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderList(tr.Renderer, "Dashboards (2 total)", infos, false))
	out := tr.Output()
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Dashboards (2 total)")
	assert.Contains(t, out, "| hosts |")
	assert.Contains(t, out, "cycle")

	tr = testutil.NewTestRendererJSON()
	require.NoError(t, renderList(tr.Renderer, "", []DashboardInfo{}, true))
	assert.JSONEq(t, `[]`, tr.Output())
}

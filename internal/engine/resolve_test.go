package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	options := []string{"a", "b", "c"}

	tests := []struct {
		name string
		v    core.Variable
		opts []string
		want any
	}{
		{"kept", core.Variable{SelectedValue: "b"}, options, "b"},
		{"default when gone", core.Variable{SelectedValue: "z", DefaultValue: "c"}, options, "c"},
		{"first when default gone", core.Variable{SelectedValue: "z", DefaultValue: "y"}, options, "a"},
		{"first when empty", core.Variable{}, options, "a"},
		{"multi filtered", core.Variable{MultiSelect: true, SelectedValue: []any{"a", "z", "c"}}, options, []any{"a", "c"}},
		{"multi first", core.Variable{MultiSelect: true, SelectedValue: []any{"z"}}, options, []any{"a"}},
		{"multi default list", core.Variable{MultiSelect: true, DefaultValue: []any{"b"}}, options, []any{"b"}},
		{"single from list", core.Variable{SelectedValue: []any{"z", "b"}}, options, "b"},
		{"numbers match text", core.Variable{SelectedValue: float64(2)}, []string{"1", "2"}, float64(2)},
		{"all kept", core.Variable{AllSelected: true, SelectedValue: []any{"z"}}, options, []any{"z"}},
		{"all sentinel kept", core.Variable{SelectedValue: core.AllSelectedValue}, options, core.AllSelectedValue},
		{"no options clears", core.Variable{SelectedValue: "a"}, nil, nil},
		{"textbox kept", core.Variable{Kind: core.KindTextbox, SelectedValue: "free"}, []string{"x"}, "free"},
		{"textbox filled", core.Variable{Kind: core.KindTextbox}, []string{"x"}, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.v
			assert.Equal(t, tt.want, Reconcile(&v, tt.opts))
		})
	}
}

func TestNormalizeSelection(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, normalizeSelection([]string{"a", "b"}))
	assert.Equal(t, "x", normalizeSelection("x"))
	assert.Nil(t, normalizeSelection(nil))
}

func TestReport(t *testing.T) {
	r := &Report{Fetches: []Fetch{
		{Variable: "a", Status: core.FetchStatusSuccess},
		{Variable: "b", Status: core.FetchStatusFailed, Err: assert.AnError},
		{Variable: "c", Status: core.FetchStatusStale},
	}}
	assert.Equal(t, []string{"a", "b", "c"}, r.Fetched())
	assert.Len(t, r.Failed(), 1)
	assert.ErrorIs(t, r.Err(), assert.AnError)
	assert.Contains(t, r.Err().Error(), "b: ")

	assert.NoError(t, (&Report{}).Err())
}

func TestReport_JSON(t *testing.T) {
	r := &Report{RunID: "r1", Trigger: "env", Duration: 1500 * time.Millisecond, Fetches: []Fetch{
		{Variable: "region", CycleID: 2, Status: core.FetchStatusFailed, Err: assert.AnError, Duration: 20 * time.Millisecond},
	}}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"run_id": "r1",
		"trigger": "env",
		"failed": 1,
		"duration_ms": 1500,
		"fetches": [{"variable": "region", "cycle_id": 2, "status": "failed", "values": 0,
		             "error": "assert.AnError general error for testing", "duration_ms": 20}]
	}`, string(data))

	data, err = json.Marshal(&Report{Trigger: TriggerAll})
	require.NoError(t, err)
	assert.JSONEq(t, `{"trigger": "all", "fetches": [], "failed": 0, "duration_ms": 0}`, string(data))
}

package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"QUERY", KindQuery, false},
		{"query", KindQuery, false},
		{" Custom ", KindCustom, false},
		{"TEXTBOX", KindTextbox, false},
		{"DYNAMIC", KindDynamic, false},
		{"CHART", KindUnknown, true},
		{"", KindUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKind_Referenceable(t *testing.T) {
	assert.True(t, KindQuery.Referenceable())
	for _, k := range []Kind{KindCustom, KindTextbox, KindDynamic, KindUnknown} {
		assert.False(t, k.Referenceable(), k.String())
	}
}

func TestVariable_DecodeType(t *testing.T) {
	var v Variable
	require.NoError(t, json.Unmarshal([]byte(`{"name":"env","type":"QUERY","queryValue":"SELECT 1"}`), &v))
	assert.Equal(t, KindQuery, v.Kind)

	var y Variable
	require.NoError(t, yaml.Unmarshal([]byte("name: svc\ntype: CUSTOM\ncustomValue: a,b\n"), &y))
	assert.Equal(t, KindCustom, y.Kind)
	assert.Equal(t, "a,b", y.CustomValue)

	err := json.Unmarshal([]byte(`{"name":"x","type":"PANEL"}`), &v)
	assert.Error(t, err)
}

func TestVariable_HasSelection(t *testing.T) {
	assert.False(t, (&Variable{}).HasSelection())
	assert.False(t, (&Variable{SelectedValue: ""}).HasSelection())
	assert.False(t, (&Variable{SelectedValue: []any{}}).HasSelection())
	assert.True(t, (&Variable{SelectedValue: "prod"}).HasSelection())
	assert.True(t, (&Variable{SelectedValue: []any{"a"}}).HasSelection())
	assert.True(t, (&Variable{SelectedValue: 3.0}).HasSelection())
	assert.True(t, (&Variable{AllSelected: true}).HasSelection())
}

func TestDashboard_Lookups(t *testing.T) {
	d := &Dashboard{Variables: []Variable{
		{Name: "env", Kind: KindCustom},
		{Name: "svc", Kind: KindQuery},
	}}

	v, ok := d.Variable("svc")
	require.True(t, ok)
	assert.Equal(t, KindQuery, v.Kind)

	_, ok = d.Variable("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"env", "svc"}, d.Names())
	assert.Equal(t, map[string]Kind{"env": KindCustom, "svc": KindQuery}, d.Kinds())

	clone := d.Clone()
	clone.Variables[0].SelectedValue = "prod"
	assert.Nil(t, d.Variables[0].SelectedValue)
}

func TestEncodeDecodeValue(t *testing.T) {
	s, err := EncodeValue([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, s)

	v, err := DecodeValue(s)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)

	empty, err := EncodeValue(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	nilVal, err := DecodeValue("")
	require.NoError(t, err)
	assert.Nil(t, nilVal)
}

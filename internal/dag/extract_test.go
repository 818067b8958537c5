package dag

import (
	"testing"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestReferences(t *testing.T) {
	tests := []struct {
		name string
		text string
		ref  string
		want bool
	}{
		{"dot brace", "SELECT * FROM t WHERE env = {{.region}}", "region", true},
		{"dot brace spaced", "env = {{ .region }}", "region", true},
		{"plain brace", "env = {{region}}", "region", true},
		{"plain brace spaced", "env = {{  region  }}", "region", true},
		{"dollar", "env = $region", "region", true},
		{"dollar at end of quote", "env = '$region'", "region", true},
		{"dollar followed by word char", "env = $regionX", "region", false},
		{"dollar prefix of longer name", "svc = $servicename", "service", false},
		{"square brackets", "env = [[region]]", "region", true},
		{"square brackets spaced", "env = [[ region ]]", "region", true},
		{"case sensitive", "env = {{.Region}}", "region", false},
		{"bare word", "SELECT region FROM t", "region", false},
		{"single brace", "{region}", "region", false},
		{"other variable", "{{.env}}", "region", false},
		{"empty text", "", "region", false},
		{"empty name", "{{.}}", "", false},
		{"regex meta in name", "x = {{a.b}}", "a.b", true},
		{"regex meta not wildcard", "x = {{axb}}", "a.b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, References(tt.text, tt.ref))
		})
	}
}

func TestDependents(t *testing.T) {
	vars := []core.Variable{
		{Name: "region", Kind: core.KindCustom, CustomValue: "us,eu"},
		{Name: "service", Kind: core.KindQuery, QueryValue: "SELECT * FROM t WHERE env = {{.region}}"},
		{Name: "host", Kind: core.KindQuery, QueryValue: "SELECT host FROM t WHERE svc = $service AND r = [[region]]"},
		{Name: "regionX", Kind: core.KindQuery, QueryValue: "SELECT 1 WHERE x = $regionX"},
		{Name: "note", Kind: core.KindTextbox, QueryValue: "{{.region}}"},
		{Name: "empty", Kind: core.KindQuery},
	}

	assert.Equal(t, []string{"service", "host"}, Dependents("region", vars))
	assert.Equal(t, []string{"host"}, Dependents("service", vars))
	assert.Empty(t, Dependents("host", vars))
	assert.Empty(t, Dependents("", vars))
}

func TestDependents_SelfReference(t *testing.T) {
	vars := []core.Variable{
		{Name: "loop", Kind: core.KindQuery, QueryValue: "SELECT v FROM t WHERE v != $loop"},
	}
	assert.Equal(t, []string{"loop"}, Dependents("loop", vars))
}

func TestReferencedNames(t *testing.T) {
	text := "SELECT * FROM t WHERE a = {{.env}} AND b = $service"
	got := ReferencedNames(text, []string{"service", "host", "env"})
	assert.Equal(t, []string{"service", "env"}, got)
}

package duckdb

import (
	"context"
	"testing"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/leapstack-labs/dashvars/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_Values(t *testing.T) {
	ctx := context.Background()
	src := New(nil)
	require.NoError(t, src.Connect(ctx, core.SourceConfig{Path: ":memory:"}))
	defer func() { _ = src.Close() }()

	_, err := src.DB.ExecContext(ctx, `CREATE TABLE hosts AS SELECT * FROM (VALUES ('api', 'h1'), ('api', 'h2'), ('web', 'h3')) t(svc, host)`)
	require.NoError(t, err)

	hosts, err := src.Values(ctx, "SELECT host FROM hosts WHERE svc = 'api' ORDER BY host")
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, hosts)

	svcs, err := src.Values(ctx, "SELECT svc FROM hosts ORDER BY host")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web"}, svcs)
}

func TestSource_NotConnected(t *testing.T) {
	src := New(nil)
	_, err := src.Values(context.Background(), "SELECT 1")
	assert.ErrorContains(t, err, "database connection not established")
}

func TestRegistered(t *testing.T) {
	assert.True(t, source.IsRegistered("duckdb"))
	assert.Equal(t, "duckdb", New(nil).Name())
}

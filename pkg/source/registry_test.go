package source

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	BaseSQLSource
}

func (f *fakeSource) Connect(_ context.Context, cfg core.SourceConfig) error {
	f.Cfg = cfg
	return nil
}

func (f *fakeSource) Name() string { return "test_source_internal" }

func TestUnknownSourceError_Error(t *testing.T) {
	err := &UnknownSourceError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	msg := err.Error()

	assert.Contains(t, msg, "fake_db", "error should mention the unknown type")
	assert.Contains(t, msg, "duckdb", "error should list available sources")
	assert.Contains(t, msg, "dashvars.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("test_source_internal", func(_ *slog.Logger) core.Source { return &fakeSource{} })

	assert.True(t, IsRegistered("test_source_internal"))
	assert.Contains(t, List(), "test_source_internal")

	factory, ok := Get("test_source_internal")
	require.True(t, ok)
	require.NotNil(t, factory)

	src, err := New(core.SourceConfig{Type: "test_source_internal"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test_source_internal", src.Name())
}

func TestNew_EmptyType(t *testing.T) {
	_, err := New(core.SourceConfig{}, nil)
	require.Error(t, err)
	assert.Equal(t, "source type not specified", err.Error())
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(core.SourceConfig{Type: "nope"}, nil)

	var unknown *UnknownSourceError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Type)
}

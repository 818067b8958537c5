package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/dashvars/internal/testutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "dashvars.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dashboards-dir", "", "")
	flags.String("state", "", "")
	flags.String("source", "", "")
	flags.String("dsn", "", "")
	flags.Duration("timeout", 0, "")
	flags.Int("concurrency", 0, "")
	flags.StringP("output", "o", "", "")
	flags.BoolP("verbose", "v", false, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultDashboardsDir), cfg.DashboardsDir)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultTimeout, cfg.Fetch.Timeout)
	assert.Equal(t, DefaultConcurrency, cfg.Fetch.Concurrency)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.True(t, cfg.Server.Watch)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `dashboards_dir: boards
source:
  type: sqlite
  path: data/app.db
  options:
    max_open_conns: "2"
fetch:
  timeout: 5s
  concurrency: 8
server:
  port: 9000
  watch: false
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "boards"), cfg.DashboardsDir)
	assert.Equal(t, "sqlite", cfg.Source.Type)
	assert.Equal(t, filepath.Join(dir, "data/app.db"), cfg.Source.Path)
	assert.Equal(t, map[string]string{"max_open_conns": "2"}, cfg.Source.Options)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 8, cfg.Fetch.Concurrency)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Server.Watch)
	assert.Equal(t, path, GetConfigFileUsed())

	src := cfg.Source.Core()
	assert.Equal(t, "sqlite", src.Type)
}

func TestLoadConfig_UpwardSearch(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "dashboards_dir: boards\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "boards"), cfg.DashboardsDir, "paths resolve against the config's directory")
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "output: text\nfetch:\n  concurrency: 2\n")

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("DASHVARS_OUTPUT", "json")
		t.Setenv("DASHVARS_FETCH__CONCURRENCY", "6")

		cfg, err := LoadConfig(path, testFlags())
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, 6, cfg.Fetch.Concurrency)
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("DASHVARS_OUTPUT", "json")
		flags := testFlags()
		require.NoError(t, flags.Set("output", "markdown"))
		require.NoError(t, flags.Set("concurrency", "3"))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "markdown", cfg.OutputFormat)
		assert.Equal(t, 3, cfg.Fetch.Concurrency)
	})

	t.Run("unset flag keeps file", func(t *testing.T) {
		cfg, err := LoadConfig(path, testFlags())
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.OutputFormat)
		assert.Equal(t, 2, cfg.Fetch.Concurrency)
	})
}

func TestLoadConfig_FlagMappings(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	flags := testFlags()
	require.NoError(t, flags.Set("state", "tmp/state.db"))
	require.NoError(t, flags.Set("dashboards-dir", "boards"))
	require.NoError(t, flags.Set("source", "postgres"))
	require.NoError(t, flags.Set("dsn", "host=db"))
	require.NoError(t, flags.Set("timeout", "2s"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	wantState, _ := filepath.Abs("tmp/state.db")
	assert.Equal(t, wantState, cfg.StatePath)
	wantBoards, _ := filepath.Abs("boards")
	assert.Equal(t, wantBoards, cfg.DashboardsDir)
	assert.Equal(t, "postgres", cfg.Source.Type)
	assert.Equal(t, "host=db", cfg.Source.DSN)
	assert.Equal(t, 2*time.Second, cfg.Fetch.Timeout)
}

func TestLoadConfig_DSNExpansion(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "source:\n  type: postgres\n  dsn: postgres://app:${DASHVARS_TEST_PW}@db/app\n")
	t.Setenv("DASHVARS_TEST_PW", "s3cret")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:s3cret@db/app", cfg.Source.DSN)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorContains(t, err, "error reading config file")

	bad := writeConfig(t, dir, "fetch:\n  timeout: soon\n")
	_, err = LoadConfig(bad, nil)
	assert.ErrorContains(t, err, "unable to decode config")

	invalid := writeConfig(t, dir, "output: html\n")
	_, err = LoadConfig(invalid, nil)
	assert.ErrorContains(t, err, "invalid output format")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{DashboardsDir: "d", OutputFormat: "auto", Fetch: FetchConfig{Concurrency: 1}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no dashboards dir", func(c *Config) { c.DashboardsDir = "" }, "dashboards_dir is required"},
		{"bad output", func(c *Config) { c.OutputFormat = "xml" }, "invalid output format"},
		{"zero concurrency", func(c *Config) { c.Fetch.Concurrency = 0 }, "at least 1"},
		{"negative timeout", func(c *Config) { c.Fetch.Timeout = -time.Second }, "must not be negative"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ValidateDirectories(t *testing.T) {
	cfg := &Config{DashboardsDir: filepath.Join(t.TempDir(), "absent")}
	assert.ErrorContains(t, cfg.ValidateDirectories(), "does not exist")

	cfg.DashboardsDir = t.TempDir()
	assert.NoError(t, cfg.ValidateDirectories())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DASHVARS_TEST_HOST", "db.local")

	assert.Equal(t, "host=db.local", expandEnvVars("host=${DASHVARS_TEST_HOST}"))
	assert.Equal(t, "x=${DASHVARS_TEST_UNSET}", expandEnvVars("x=${DASHVARS_TEST_UNSET}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "fetch.timeout", envKey("DASHVARS_FETCH__TIMEOUT"))
	assert.Equal(t, "dashboards_dir", envKey("DASHVARS_DASHBOARDS_DIR"))
	assert.Equal(t, "state_path", flagKey("state"))
	assert.Equal(t, "dashboards_dir", flagKey("dashboards-dir"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := testutil.NewTestLogger(t)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestGetConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	fallback := GetConfig(context.Background())
	assert.Equal(t, filepath.Join(dir, DefaultDashboardsDir), fallback.DashboardsDir)
	assert.Equal(t, DefaultConcurrency, fallback.Fetch.Concurrency)
	require.NoError(t, fallback.Validate())

	cfg := &Config{DashboardsDir: "x"}
	ctx := context.WithValue(context.Background(), ConfigKey(), cfg)
	assert.Same(t, cfg, GetConfig(ctx))
}

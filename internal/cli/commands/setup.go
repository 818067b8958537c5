package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/dashvars/internal/cli/config"
	"github.com/leapstack-labs/dashvars/internal/cli/output"
	"github.com/leapstack-labs/dashvars/internal/engine"
	"github.com/leapstack-labs/dashvars/internal/loader"
	"github.com/leapstack-labs/dashvars/internal/state"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/leapstack-labs/dashvars/pkg/source"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// LoadDashboards reads the dashboards directory. Files that fail to load
// are reported as warnings.
func (c *CommandContext) LoadDashboards() (*loader.Result, error) {
	if err := c.Cfg.ValidateDirectories(); err != nil {
		return nil, err
	}
	result, err := loader.LoadDir(c.Cfg.DashboardsDir, c.Logger)
	if err != nil {
		return nil, err
	}
	for _, fe := range result.Errors {
		c.Renderer.Warning(fe.Error())
	}
	return result, nil
}

// Dashboard resolves a dashboard ID against the dashboards directory and,
// failing that, the state store. An empty ID picks the only dashboard.
func (c *CommandContext) Dashboard(id string) (*core.Dashboard, error) {
	result, err := c.LoadDashboards()
	if err != nil {
		return nil, err
	}

	if id == "" {
		switch len(result.Dashboards) {
		case 0:
			return nil, fmt.Errorf("no dashboards found in %s", c.Cfg.DashboardsDir)
		case 1:
			return result.Dashboards[0], nil
		default:
			ids := make([]string, 0, len(result.Dashboards))
			for _, d := range result.Dashboards {
				ids = append(ids, d.ID)
			}
			return nil, fmt.Errorf("multiple dashboards found, pick one with --dashboard: %s", strings.Join(ids, ", "))
		}
	}

	if d, ok := result.Get(id); ok {
		return d, nil
	}

	if _, err := os.Stat(c.Cfg.StatePath); err == nil {
		store, err := c.OpenStore()
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		d, err := store.GetDashboard(id)
		if err == nil {
			c.Logger.Debug("dashboard loaded from state store", "id", id)
			return d, nil
		}
		if !errors.Is(err, state.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("dashboard %q not found", id)
}

// OpenStore opens and migrates the state database, creating its directory.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	if dir := filepath.Dir(c.Cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// OpenSource connects the configured value source. It returns nil when no
// source type is configured.
func (c *CommandContext) OpenSource(ctx context.Context) (core.Source, error) {
	if c.Cfg.Source.Type == "" {
		return nil, nil
	}
	src, err := source.New(c.Cfg.Source.Core(), c.Logger)
	if err != nil {
		return nil, err
	}
	if err := src.Connect(ctx, c.Cfg.Source.Core()); err != nil {
		return nil, fmt.Errorf("failed to connect to %s source: %w", src.Name(), err)
	}
	return src, nil
}

// NewEngine creates an engine for d with the configured source. When store
// is non-nil, runs are recorded in it. The returned cleanup closes the source.
func (c *CommandContext) NewEngine(ctx context.Context, d *core.Dashboard, store core.Store) (*engine.Engine, func(), error) {
	src, err := c.OpenSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(d, engine.Config{
		Source:      src,
		Store:       store,
		Concurrency: c.Cfg.Fetch.Concurrency,
		Timeout:     c.Cfg.Fetch.Timeout,
		Logger:      c.Logger,
	})
	cleanup := func() {
		if src != nil {
			_ = src.Close()
		}
	}
	return eng, cleanup, nil
}

// addDashboardFlag registers the --dashboard flag.
func addDashboardFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "dashboard", "d", "", "Dashboard ID (default: the only dashboard)")
}

package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/dashvars/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var noRecord bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dashboards over HTTP",
		Long: `Start an HTTP API over the dashboards directory.

Endpoints:
  GET  /healthz
  GET  /metrics                           Prometheus metrics
  GET  /api/dashboards
  GET  /api/dashboards/{id}               variables with their live state
  GET  /api/dashboards/{id}/graph
  GET  /api/dashboards/{id}/runs
  POST /api/dashboards/{id}/check
  POST /api/dashboards/{id}/propagate     {"variable": "env"}
  POST /api/dashboards/{id}/refresh
  POST /api/dashboards/{id}/select        {"variable": "env", "value": "prod"}

Dashboards are reloaded when their files change unless --watch=false.`,
		Example: `  # Serve on the default port
  dashvars serve

  # Serve on port 9000 without file watching
  dashvars serve --port 9000 --watch=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, noRecord)
		},
	}

	cmd.Flags().Int("port", 0, "Port to serve on (default: 8080)")
	cmd.Flags().Bool("watch", true, "Reload dashboards when files change")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not store runs in the state database")
	return cmd
}

func runServe(cmd *cobra.Command, noRecord bool) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	if err := cfg.ValidateDirectories(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := cmdCtx.OpenSource(ctx)
	if err != nil {
		return err
	}
	if src != nil {
		defer func() { _ = src.Close() }()
	}

	srvCfg := server.Config{
		DashboardsDir: cfg.DashboardsDir,
		Port:          cfg.Server.Port,
		Watch:         cfg.Server.Watch,
		Source:        src,
		Concurrency:   cfg.Fetch.Concurrency,
		Timeout:       cfg.Fetch.Timeout,
		Logger:        cmdCtx.Logger,
	}
	if !noRecord {
		store, err := cmdCtx.OpenStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		srvCfg.Store = store
	}

	return server.New(srvCfg).Serve(ctx)
}

package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pipecheck/internal/config"
	"github.com/matzehuels/pipecheck/internal/server"
	"github.com/matzehuels/pipecheck/pkg/cache"
	"github.com/matzehuels/pipecheck/pkg/observability"
	"github.com/matzehuels/pipecheck/pkg/pipeline"
)

// serveCommand creates the serve command for running the HTTP service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline checking HTTP service",
		Long: `Run the HTTP service the editor submits pipelines to.

Settings come from built-in defaults, then the TOML file given by --config,
then a .env file in the working directory, then PIPECHECK_* environment
variables. --addr overrides everything else.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return c.runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := cfg.NewLogger(os.Stderr)
	if c.Logger.GetLevel() == log.DebugLevel {
		logger.SetLevel(log.DebugLevel)
	}

	store, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	runner := pipeline.NewRunner(store, cfg.Keyer(), logger)
	runner.Limits = cfg.PipelineLimits()
	defer runner.Close()

	var opts []server.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		hooks := observability.NewPrometheusHooks(reg)
		observability.SetCheckHooks(hooks)
		observability.SetCacheHooks(hooks)
		observability.SetHTTPHooks(hooks)
		defer observability.Reset()

		opts = append(opts, server.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	logger.Info("starting pipecheck", "addr", cfg.Server.Addr, "cache", cfg.Cache.Backend, "metrics", cfg.Metrics.Enabled)
	return server.New(cfg, runner, logger, opts...).ListenAndServe(ctx)
}

package main

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"flowengine/internal/service"
	"flowengine/pkg/apperror"
	"flowengine/pkg/cache"
	"flowengine/pkg/config"
	"flowengine/pkg/logger"
	"flowengine/pkg/metrics"
	"flowengine/pkg/telemetry"
)

// cli holds the state shared by the commands of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	// Persistent flags.
	configFile string
	logLevel   string
	format     string
	output     string
	maxRows    int

	cfg         *config.Config
	svc         *service.SolverService
	solverCache *cache.SolverCache
	tracer      *telemetry.Provider
	stopMetrics context.CancelFunc

	// exitCode is returned when the command itself succeeds.
	exitCode int
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "flowsolve",
		Short: "Maximum flow, minimum cost flow and minimum cut solver",
		Long: `flowsolve solves network flow instances described in YAML or JSON.

An instance lists the node count, source, sink and edges with capacity and
cost. Instances with node demands (and optional lower bounds) are
circulations and are solved with the circulate command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid flags")
	})

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "config file (default: FLOWENGINE_CONFIG or config.yaml)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVarP(&c.format, "format", "f", "", "report format: csv, markdown, json, xlsx, pdf (default: report.format)")
	pf.StringVarP(&c.output, "output", "o", "", `report file, "-" for stdout (default: report.output_dir or stdout)`)
	pf.IntVar(&c.maxRows, "max-rows", -1, "edge rows per instance in reports, 0 for all (default: report.max_rows)")

	root.AddCommand(
		newSolveCmd(c),
		newMaxFlowCmd(c),
		newMinCutCmd(c),
		newGlobalCutCmd(c),
		newCirculateCmd(c),
		newBatchCmd(c),
		newAlgorithmsCmd(c),
	)

	return root
}

// setup loads the configuration and initialises the ambient stack.
func (c *cli) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	// =========================================================================
	// Configuration Loading
	// =========================================================================
	var opts []config.LoaderOption
	if c.configFile != "" {
		opts = append(opts, config.WithConfigFile(c.configFile))
	}
	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "failed to load config")
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	c.cfg = cfg

	// =========================================================================
	// Logger Initialization
	// =========================================================================
	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	// =========================================================================
	// Telemetry Initialization (OpenTelemetry)
	// =========================================================================
	//
	// A disabled provider hands out no-op spans. Failing to reach the
	// collector is not fatal for a command line run.
	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg))
	if err != nil {
		logger.Log.Warn("Failed to init telemetry", "error", err)
	} else {
		c.tracer = tp
		if cfg.Tracing.Enabled {
			logger.Log.Debug("Telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	// =========================================================================
	// Metrics Initialization (Prometheus)
	// =========================================================================
	m := c.initMetrics(ctx)

	// =========================================================================
	// Cache Initialization
	// =========================================================================
	//
	// The cache is optional; a backend that cannot be created is logged and
	// the run continues without it.
	svcOpts := []service.Option{service.WithMetrics(m)}
	if cfg.Cache.Enabled {
		baseCache, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create cache, continuing without cache", "error", err)
		} else {
			c.solverCache = cache.NewSolverCache(baseCache, cfg.Cache.DefaultTTL)
			svcOpts = append(svcOpts, service.WithCache(c.solverCache))
			logger.Log.Debug("Solver cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	c.svc = service.NewSolverService(cfg.Solver, svcOpts...)
	return nil
}

// initMetrics registers the solver metrics. Without metrics.enabled they go
// to a private registry that nothing scrapes.
func (c *cli) initMetrics(ctx context.Context) *metrics.Metrics {
	mc := c.cfg.Metrics
	if !mc.Enabled {
		return metrics.NewMetrics(prometheus.NewRegistry(), mc.Namespace, mc.Subsystem)
	}

	m := metrics.InitMetrics(mc.Namespace, mc.Subsystem)
	m.SetBuildInfo(c.cfg.App.Version, c.cfg.App.Environment)

	if mc.Port > 0 {
		srvCtx, cancel := context.WithCancel(ctx)
		c.stopMetrics = cancel
		go func() {
			if err := metrics.StartMetricsServer(srvCtx, mc.Port, mc.Path); err != nil {
				logger.Log.Warn("Metrics server stopped", "error", err)
			}
		}()
		logger.Log.Debug("Metrics server started", "port", mc.Port, "path", mc.Path)
	}
	return m
}

// close releases what setup acquired.
func (c *cli) close() {
	if c.stopMetrics != nil {
		c.stopMetrics()
	}

	if c.solverCache != nil {
		if err := c.solverCache.Close(); err != nil {
			logger.Log.Warn("Failed to close cache", "error", err)
		}
	}

	if c.tracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("Failed to shutdown telemetry", "error", err)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/audit/recorder"
	"cpathways/cprules/pkg/audit/retention"
	"cpathways/cprules/pkg/cli"
	"cpathways/cprules/pkg/config"
	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/rules"
	"cpathways/cprules/pkg/scenario"
	"cpathways/cprules/pkg/server"
	"cpathways/cprules/pkg/telemetry/health"
	"cpathways/cprules/pkg/telemetry/metrics"
	"cpathways/cprules/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	selfTest      bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the rule evaluation service",
	Long: `Start the HTTP service that answers modeling rule queries.

Endpoints:
  POST /v1/evaluate        evaluate one action
  POST /v1/evaluate/batch  evaluate several actions
  GET  /v1/rules           registered rules per action
  GET  /v1/audit           query the audit trail
  GET  /health, /ready     liveness and readiness
  GET  /version            build information
  GET  /metrics            Prometheus metrics
  GET  /openapi.yaml       API description

Examples:
  # Start with default config
  cprules serve

  # Start with custom config
  cprules serve --config /etc/cprules/config.yaml

  # Override listen address
  cprules serve --listen 0.0.0.0:8420

  # Re-run the configured scenario suite on startup and on change
  cprules serve --self-test

  # Validate config without starting the service
  cprules serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the service")
	serveCmd.Flags().BoolVar(&serveFlags.selfTest, "self-test", false, "run the scenario suite on startup and whenever it changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("config", err.Error())
	}
	cfg := config.GetConfig()

	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	logger, err := newLogger(&cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if serveFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	var collector *metrics.Collector
	var engineOpts []engine.Option
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		engineOpts = append(engineOpts, engine.WithMetrics(collector))
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()
	engineOpts = append(engineOpts, engine.WithTracer(tracer.Tracer()))

	chain := newChain(&cfg.Rules, logger)

	checker := health.New(0)
	checker.RegisterCheck("rules", health.RulesCheck(chain))

	var store audit.Storage
	if cfg.Audit.Enabled {
		store, err = openStorage(&cfg.Audit)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer store.Close()
		checker.RegisterCheck("audit", health.StorageCheck(store))

		rec := recorder.NewRecorder(store, recorderConfig(&cfg.Audit.Recorder), logger)
		defer rec.Close()
		if collector != nil {
			rec.SetDropCounter(collector)
		}
		engineOpts = append(engineOpts, engine.WithRecorder(rec))

		pruner := retention.NewPruner(store, retentionConfig(&cfg.Audit.Retention), logger)
		if collector != nil {
			pruner.SetPruneCounter(collector)
		}
		if err := pruner.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
			if next := pruner.NextPruning(); next != nil {
				logger.Debug("audit retention scheduler started", "next_pruning", next)
			}
		}
	}

	eng, err := engine.New(chain, engineConfig(&cfg.Rules), logger, engineOpts...)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	if serveFlags.selfTest {
		if err := startSelfTest(ctx, chain, &cfg.Scenarios, collector, logger); err != nil {
			return cli.NewCommandError("serve", err)
		}
	}

	tlsConfig, err := serverTLS(ctx, &cfg.Server.TLS, logger)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	keys, sources := authOptions(&cfg.Server.Auth)
	srv, err := server.New(&cfg.Server, server.Options{
		Engine:      eng,
		Auth:        keys,
		AuthSources: sources,
		TLS:         tlsConfig,
		Storage:     store,
		Health:      checker,
		Metrics:     collector,
		Tracer:      tracer.Tracer(),
		Logger:      logger,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Query:       cfg.Audit.Query,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	logger.Info("cprules starting",
		"version", Version,
		"address", cfg.Server.ListenAddress,
		"audit", cfg.Audit.Enabled,
		"auth", cfg.Server.Auth.Enabled,
		"tls", cfg.Server.TLS.Enabled,
		"fallback", cfg.Rules.Fallback,
		"fail_safe_mode", cfg.Rules.FailSafeMode,
	)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// startSelfTest runs the scenario suite once and again whenever the file
// changes. Failures are logged and counted; they never stop the service.
func startSelfTest(ctx context.Context, chain *rules.Chain, cfg *config.ScenarioConfig, collector *metrics.Collector, logger *slog.Logger) error {
	var rec scenario.Recorder
	if collector != nil {
		rec = collector
	}
	logger = logger.With("component", "self-test", "suite", cfg.Path)

	run := func() {
		suite, err := scenario.LoadSuite(cfg.Path)
		if err != nil {
			logger.Error("failed to load scenario suite", "error", err)
			return
		}
		report := scenario.RunAndRecord(chain, suite, rec)
		for _, f := range report.Failures() {
			logger.Warn("scenario failed",
				"name", f.Name,
				"expected", f.Expected.String(),
				"actual", f.Actual.String(),
				"error", f.Error,
			)
		}
		logger.Info("scenario suite completed", "passed", report.Passed, "failed", report.Failed)
	}
	run()

	w, err := scenario.NewWatcher(cfg.Path, cfg.Debounce, logger)
	if err != nil {
		return err
	}
	go func() {
		if err := w.Watch(ctx, run); err != nil {
			logger.Error("scenario watcher stopped", "error", err)
		}
		_ = w.Stop()
	}()
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/manwithacat/dazzle-sub014/pkg/audit"
	"github.com/manwithacat/dazzle-sub014/pkg/config"
	"github.com/manwithacat/dazzle-sub014/pkg/metrics"
	"github.com/manwithacat/dazzle-sub014/pkg/ruleset"
	"github.com/manwithacat/dazzle-sub014/pkg/server"
)

var runFlags struct {
	listenAddress string
	definitions   string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the rule engine server",
	Long: `Start the rule engine server with the specified configuration.

The server compiles the entity definitions, listens on the configured
address, and serves access decisions, invariant checks, and transition
evaluations. Definition files are watched and hot-reloaded on change.

Examples:
  # Start with default config
  dazzle run

  # Start with custom config
  dazzle run --config /etc/dazzle/config.yaml

  # Override the definition directory
  dazzle run --definitions ./rules

  # Validate config and definitions without starting the server
  dazzle run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVarP(&runFlags.definitions, "definitions", "d", "", "override definition directory")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and definitions without starting")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.definitions != "" {
		cfg.Definitions.Dir = runFlags.definitions
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger := setupLogger(&cfg.Logging)
	slog.SetDefault(logger)

	loader, err := ruleset.NewLoader(&ruleset.LoaderConfig{
		Extensions: cfg.Definitions.Extensions,
		MaxDepth:   cfg.Definitions.MaxDepth,
	}, logger)
	if err != nil {
		return err
	}

	entities, err := loader.LoadDir(cfg.Definitions.Dir)
	if err != nil {
		return fmt.Errorf("failed to load definitions: %w", err)
	}
	registry := ruleset.NewRegistry()
	if err := registry.Replace(entities); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Printf("configuration and %d entity definition(s) are valid\n", registry.Count())
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	deps := &server.Deps{Registry: registry, Logger: logger}

	if *cfg.Audit.Enabled {
		storage, err := buildAuditStorage(&cfg.Audit, logger)
		if err != nil {
			return err
		}
		defer storage.Close()

		recorder, err := audit.NewRecorder(storage, &audit.RecorderConfig{
			BufferSize:   cfg.Audit.BufferSize,
			WriteTimeout: cfg.Audit.WriteTimeout,
		}, logger)
		if err != nil {
			return err
		}
		defer recorder.Close()

		pruner := audit.NewPruner(storage, &audit.RetentionConfig{
			RetentionDays: cfg.Audit.RetentionDays,
			PruneSchedule: cfg.Audit.PruneSchedule,
		}, logger)
		scheduler := audit.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()

		deps.AuditStorage = storage
		deps.Recorder = recorder
	}

	if *cfg.Metrics.Enabled {
		promRegistry := prometheus.NewRegistry()
		promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Metrics = metrics.New(&metrics.Config{Namespace: cfg.Metrics.Namespace}, promRegistry)
		deps.PromRegistry = promRegistry
	}

	if *cfg.Definitions.Watch {
		watcher, err := ruleset.NewWatcher(&ruleset.WatcherConfig{
			Dir:              cfg.Definitions.Dir,
			DebounceInterval: cfg.Definitions.DebounceInterval,
			Extensions:       cfg.Definitions.Extensions,
		}, loader, registry, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("definition watcher exited", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	srv, err := server.NewServer(&cfg.Server, deps)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

func buildAuditStorage(cfg *config.AuditConfig, logger *slog.Logger) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return audit.NewMemoryStorage(), nil
	case "sqlite":
		sqliteCfg := audit.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Path
		return audit.NewSQLiteStorage(sqliteCfg, logger)
	}
	return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
}

func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

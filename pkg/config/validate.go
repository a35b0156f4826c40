package config

import (
	"fmt"
	"net"

	"github.com/robfig/cron/v3"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

var validAuditBackends = map[string]bool{
	"memory": true, "sqlite": true,
}

// Validate checks the configuration for errors. Call after ApplyDefaults.
func Validate(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		return fmt.Errorf("server.listen_address %q is not host:port: %w", cfg.Server.ListenAddress, err)
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if cfg.Definitions.Dir == "" {
		return fmt.Errorf("definitions.dir is required")
	}
	if len(cfg.Definitions.Extensions) == 0 {
		return fmt.Errorf("definitions.extensions must not be empty")
	}
	if cfg.Definitions.MaxDepth <= 0 {
		return fmt.Errorf("definitions.max_depth must be positive, got %d", cfg.Definitions.MaxDepth)
	}
	if cfg.Definitions.DebounceInterval <= 0 {
		return fmt.Errorf("definitions.debounce_interval must be positive")
	}

	if !validAuditBackends[cfg.Audit.Backend] {
		return fmt.Errorf("audit.backend %q must be one of: memory, sqlite", cfg.Audit.Backend)
	}
	if cfg.Audit.Backend == "sqlite" && cfg.Audit.Path == "" {
		return fmt.Errorf("audit.path is required for the sqlite backend")
	}
	if cfg.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit.buffer_size must be positive, got %d", cfg.Audit.BufferSize)
	}
	if cfg.Audit.WriteTimeout <= 0 {
		return fmt.Errorf("audit.write_timeout must be positive")
	}
	if cfg.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit.retention_days must not be negative, got %d", cfg.Audit.RetentionDays)
	}
	if cfg.Audit.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Audit.PruneSchedule); err != nil {
			return fmt.Errorf("audit.prune_schedule %q is not a valid cron expression: %w", cfg.Audit.PruneSchedule, err)
		}
	}

	if cfg.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required")
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level %q must be one of: debug, info, warn, error", cfg.Logging.Level)
	}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format %q must be text or json", cfg.Logging.Format)
	}
	return nil
}

package config

import (
	"time"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
)

func boolPtr(b bool) *bool { return &b }

// ApplyDefaults fills unset fields with default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1:8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Definitions.Dir == "" {
		cfg.Definitions.Dir = "definitions"
	}
	if len(cfg.Definitions.Extensions) == 0 {
		cfg.Definitions.Extensions = []string{".yaml", ".yml"}
	}
	if cfg.Definitions.MaxDepth == 0 {
		cfg.Definitions.MaxDepth = expr.DefaultParserConfig().MaxDepth
	}
	if cfg.Definitions.Watch == nil {
		cfg.Definitions.Watch = boolPtr(true)
	}
	if cfg.Definitions.DebounceInterval == 0 {
		cfg.Definitions.DebounceInterval = 500 * time.Millisecond
	}

	if cfg.Audit.Enabled == nil {
		cfg.Audit.Enabled = boolPtr(true)
	}
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "data/audit.db"
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = 1024
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = 5 * time.Second
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 90
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = "0 3 * * *"
	}

	if cfg.Metrics.Enabled == nil {
		cfg.Metrics.Enabled = boolPtr(true)
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "ruleengine"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

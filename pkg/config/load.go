package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "DAZZLE_"

// Load loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow DAZZLE_SECTION_FIELD
// (e.g. DAZZLE_SERVER_LISTEN_ADDRESS) and take precedence over the file.
// A missing file is not an error: defaults plus overrides are used.
func LoadWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after env overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.ListenAddress, "SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")

	setString(&cfg.Definitions.Dir, "DEFINITIONS_DIR")
	setInt(&cfg.Definitions.MaxDepth, "DEFINITIONS_MAX_DEPTH")
	setBoolPtr(&cfg.Definitions.Watch, "DEFINITIONS_WATCH")
	setDuration(&cfg.Definitions.DebounceInterval, "DEFINITIONS_DEBOUNCE_INTERVAL")

	setBoolPtr(&cfg.Audit.Enabled, "AUDIT_ENABLED")
	setString(&cfg.Audit.Backend, "AUDIT_BACKEND")
	setString(&cfg.Audit.Path, "AUDIT_PATH")
	setInt(&cfg.Audit.BufferSize, "AUDIT_BUFFER_SIZE")
	setInt(&cfg.Audit.RetentionDays, "AUDIT_RETENTION_DAYS")
	setString(&cfg.Audit.PruneSchedule, "AUDIT_PRUNE_SCHEDULE")

	setBoolPtr(&cfg.Metrics.Enabled, "METRICS_ENABLED")
	setString(&cfg.Metrics.Namespace, "METRICS_NAMESPACE")

	setString(&cfg.Logging.Level, "LOGGING_LEVEL")
	setString(&cfg.Logging.Format, "LOGGING_FORMAT")
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setBoolPtr(dst **bool, key string) {
	if v, ok := lookup(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = &b
		}
	}
}

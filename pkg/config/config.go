package config

import "time"

// Config is the root configuration structure for the rule engine service.
type Config struct {
	// Server contains HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Definitions contains configuration for the entity definition loader
	// and watcher.
	Definitions DefinitionsConfig `yaml:"definitions"`

	// Audit contains configuration for the decision log.
	Audit AuditConfig `yaml:"audit"`

	// Metrics contains prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging contains log output configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit. Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefinitionsConfig contains configuration for entity definition loading.
type DefinitionsConfig struct {
	// Dir is the directory holding entity definition files.
	// Default: "definitions"
	Dir string `yaml:"dir"`

	// Extensions lists the definition file extensions.
	// Default: [".yaml", ".yml"]
	Extensions []string `yaml:"extensions"`

	// MaxDepth is the expression nesting limit for condition parsing.
	// Default: the parser default.
	MaxDepth int `yaml:"max_depth"`

	// Watch enables hot reload on file changes. Default: true
	Watch *bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a reload fires.
	// Default: 500ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// AuditConfig contains configuration for the decision log.
type AuditConfig struct {
	// Enabled turns audit recording on. Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend selects the store: "memory" or "sqlite". Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file. Default: "data/audit.db"
	Path string `yaml:"path"`

	// BufferSize is the async recorder buffer capacity. Default: 1024
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds each storage write. Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RetentionDays is how long records are kept. Zero disables pruning.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// MetricsConfig contains prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled exposes /metrics. Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace is the metric name prefix. Default: "ruleengine"
	Namespace string `yaml:"namespace"`
}

// LoggingConfig contains log output configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: "info"
	Level string `yaml:"level"`

	// Format is "text" or "json". Default: "text"
	Format string `yaml:"format"`
}

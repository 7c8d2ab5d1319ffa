package config

import "time"

// Config is the root configuration structure for cprules.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Rules controls how rule verdicts become final decisions.
	Rules RulesConfig `yaml:"rules"`

	// Audit contains the decision audit trail configuration.
	Audit AuditConfig `yaml:"audit"`

	// Scenarios configures the scenario suite runner.
	Scenarios ScenarioConfig `yaml:"scenarios"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the "host:port" to listen on.
	// Default: "127.0.0.1:8420"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is how long keep-alive connections may stay idle.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits evaluation request bodies.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// Auth protects the /v1 API with API keys.
	Auth AuthConfig `yaml:"auth"`

	// TLS serves HTTPS instead of plain HTTP.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS.
type TLSConfig struct {
	// Enabled switches the listener to TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM-encoded.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ClientCAFile turns on client certificate verification.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth is "require", "request" or "verify_if_given".
	// Default: "require" when ClientCAFile is set
	ClientAuth string `yaml:"client_auth"`

	// ReloadInterval is how often the certificate files are checked for renewal.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	// Enabled requires a valid API key on every /v1 request.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Header carries the key.
	// Default: "Authorization"
	Header string `yaml:"header"`

	// Scheme prefixes the key in Header. Empty means the header is the bare key.
	// Default: "Bearer"
	Scheme string `yaml:"scheme"`

	// Keys are the accepted API keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	Key      string `yaml:"key"`
	Client   string `yaml:"client"`
	Disabled bool   `yaml:"disabled"`
}

// RulesConfig controls rule registration and decision resolution.
type RulesConfig struct {
	// Priority is the priority the clinical pathway rules register with.
	// Default: 1000
	Priority int `yaml:"priority"`

	// Fallback answers actions every provider deferred on.
	// Options: "allow", "deny"
	// Default: "deny"
	Fallback string `yaml:"fallback"`

	// FailSafeMode handles faulting decision functions.
	// Options: "fail-open", "fail-closed"
	// Default: "fail-closed"
	FailSafeMode string `yaml:"fail_safe_mode"`
}

// AuditConfig contains audit trail configuration.
type AuditConfig struct {
	// Enabled turns decision recording on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite", "redis"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Retention RetentionConfig `yaml:"retention"`
	Query     QueryConfig     `yaml:"query"`
}

// RedisConfig contains Redis storage configuration.
type RedisConfig struct {
	// Address is "host:port".
	// Default: "localhost:6379"
	Address string `yaml:"address"`

	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Prefix namespaces the audit keys.
	// Default: "cprules:audit:"
	Prefix string `yaml:"prefix"`

	// DialTimeout bounds connecting.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains async recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the write channel capacity.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds enqueueing and each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// HashContext stores a SHA-256 of every request context.
	// Default: true
	HashContext bool `yaml:"hash_context"`
}

// RetentionConfig contains retention configuration.
type RetentionConfig struct {
	// Days to keep records. 0 keeps them forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a five-field cron expression. Empty disables scheduling.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete writes pruned records to ArchivePath as JSON.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords caps the number of stored records. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// QueryConfig contains audit query configuration.
type QueryConfig struct {
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// Default: 10000
	MaxLimit int `yaml:"max_limit"`

	// Timeout bounds a single query.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// ScenarioConfig configures the scenario runner.
type ScenarioConfig struct {
	// Path is the default scenario suite file.
	// Default: "scenarios.yaml"
	Path string `yaml:"path"`

	// Debounce delays re-runs while the suite file is being written.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "cprules"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "rules"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are histogram buckets for evaluation duration in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled exports spans for evaluations and HTTP requests.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "cprules"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of root spans sampled, 0.0 to 1.0.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

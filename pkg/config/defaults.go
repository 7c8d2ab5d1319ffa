package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8420"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576
	DefaultMaxBodyBytes    = int64(1048576)
	DefaultAuthHeader      = "Authorization"
	DefaultAuthScheme      = "Bearer"
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute

	// Rules defaults
	DefaultRulesPriority     = 1000
	DefaultRulesFallback     = "deny"
	DefaultRulesFailSafeMode = "fail-closed"

	// Audit defaults
	DefaultAuditEnabled              = true
	DefaultAuditBackend              = "sqlite"
	DefaultAuditSQLitePath           = "data/audit.db"
	DefaultAuditSQLiteDriver         = "sqlite3"
	DefaultAuditSQLiteMaxOpenConns   = 10
	DefaultAuditSQLiteMaxIdleConns   = 5
	DefaultAuditSQLiteWALMode        = true
	DefaultAuditSQLiteBusyTimeout    = 5 * time.Second
	DefaultAuditRedisAddress         = "localhost:6379"
	DefaultAuditRedisPrefix          = "cprules:audit:"
	DefaultAuditRedisDialTimeout     = 5 * time.Second
	DefaultAuditRecorderAsyncBuffer  = 1000
	DefaultAuditRecorderWriteTimeout = 5 * time.Second
	DefaultAuditRecorderHashContext  = true
	DefaultAuditRetentionDays        = 90
	DefaultAuditRetentionSchedule    = "0 3 * * *"
	DefaultAuditRetentionArchive     = false
	DefaultAuditRetentionArchivePath = "data/archives/"
	DefaultAuditRetentionMaxRecords  = int64(0)
	DefaultAuditQueryDefaultLimit    = 100
	DefaultAuditQueryMaxLimit        = 10000
	DefaultAuditQueryTimeout         = 30 * time.Second

	// Scenario defaults
	DefaultScenarioPath     = "scenarios.yaml"
	DefaultScenarioDebounce = 100 * time.Millisecond

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "cprules"
	DefaultMetricsSubsystem = "rules"
	DefaultTracingService   = "cprules"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingRatio     = 1.0
	DefaultTracingTimeout   = 10 * time.Second
)

// DefaultDurationBuckets are evaluation latency buckets in seconds.
// Rule evaluation is in-process, so the range is microseconds to milliseconds.
var DefaultDurationBuckets = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05}

// Defaults returns a configuration with every field at its default value,
// including the boolean fields whose default is true.
func Defaults() *Config {
	cfg := &Config{
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultAuditSQLiteWALMode,
			},
			Recorder: RecorderConfig{
				HashContext: DefaultAuditRecorderHashContext,
			},
			Retention: RetentionConfig{
				Days:                DefaultAuditRetentionDays,
				PruneSchedule:       DefaultAuditRetentionSchedule,
				ArchiveBeforeDelete: DefaultAuditRetentionArchive,
				MaxRecords:          DefaultAuditRetentionMaxRecords,
			},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				SampleRatio: DefaultTracingRatio,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field whose zero value is not meaningful.
// Booleans, retention days, the prune schedule, max records and the sample
// ratio are left alone
// since their zero values are valid settings; Defaults covers those.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReload
	}
	if cfg.Server.Auth.Header == "" {
		cfg.Server.Auth.Header = DefaultAuthHeader
		if cfg.Server.Auth.Scheme == "" {
			cfg.Server.Auth.Scheme = DefaultAuthScheme
		}
	}

	// Rules defaults
	if cfg.Rules.Priority == 0 {
		cfg.Rules.Priority = DefaultRulesPriority
	}
	if cfg.Rules.Fallback == "" {
		cfg.Rules.Fallback = DefaultRulesFallback
	}
	if cfg.Rules.FailSafeMode == "" {
		cfg.Rules.FailSafeMode = DefaultRulesFailSafeMode
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.Driver == "" {
		cfg.Audit.SQLite.Driver = DefaultAuditSQLiteDriver
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Redis.Address == "" {
		cfg.Audit.Redis.Address = DefaultAuditRedisAddress
	}
	if cfg.Audit.Redis.Prefix == "" {
		cfg.Audit.Redis.Prefix = DefaultAuditRedisPrefix
	}
	if cfg.Audit.Redis.DialTimeout == 0 {
		cfg.Audit.Redis.DialTimeout = DefaultAuditRedisDialTimeout
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditRecorderWriteTimeout
	}
	if cfg.Audit.Retention.ArchivePath == "" {
		cfg.Audit.Retention.ArchivePath = DefaultAuditRetentionArchivePath
	}
	if cfg.Audit.Query.DefaultLimit == 0 {
		cfg.Audit.Query.DefaultLimit = DefaultAuditQueryDefaultLimit
	}
	if cfg.Audit.Query.MaxLimit == 0 {
		cfg.Audit.Query.MaxLimit = DefaultAuditQueryMaxLimit
	}
	if cfg.Audit.Query.Timeout == 0 {
		cfg.Audit.Query.Timeout = DefaultAuditQueryTimeout
	}

	// Scenario defaults
	if cfg.Scenarios.Path == "" {
		cfg.Scenarios.Path = DefaultScenarioPath
	}
	if cfg.Scenarios.Debounce == 0 {
		cfg.Scenarios.Debounce = DefaultScenarioDebounce
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}

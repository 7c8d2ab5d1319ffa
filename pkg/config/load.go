package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, layered over Defaults,
// and validates it. Environment variables are not consulted.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML over Defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// CPRULES_* environment variable overrides before validating.
// An empty path loads the defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Defaults()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// envKeys appends comma-separated API keys. Keys from the environment are
// attributed to the client "env".
func envKeys(name string, dst *[]APIKeyConfig) {
	for _, key := range strings.Split(os.Getenv(name), ",") {
		if key = strings.TrimSpace(key); key != "" {
			*dst = append(*dst, APIKeyConfig{Key: key, Client: "env"})
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envInt64(name string, dst *int64) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

// applyEnvOverrides applies CPRULES_SECTION_FIELD environment variables.
// Unparsable values are ignored and left to validation of the file value.
func applyEnvOverrides(cfg *Config) {
	// Server
	envString("CPRULES_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("CPRULES_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("CPRULES_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("CPRULES_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("CPRULES_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("CPRULES_SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	envInt64("CPRULES_SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)
	envBool("CPRULES_SERVER_AUTH_ENABLED", &cfg.Server.Auth.Enabled)
	envKeys("CPRULES_SERVER_AUTH_KEYS", &cfg.Server.Auth.Keys)
	envBool("CPRULES_SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("CPRULES_SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("CPRULES_SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	// Rules
	envInt("CPRULES_RULES_PRIORITY", &cfg.Rules.Priority)
	envString("CPRULES_RULES_FALLBACK", &cfg.Rules.Fallback)
	envString("CPRULES_RULES_FAIL_SAFE_MODE", &cfg.Rules.FailSafeMode)

	// Audit
	envBool("CPRULES_AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString("CPRULES_AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("CPRULES_AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envString("CPRULES_AUDIT_SQLITE_DRIVER", &cfg.Audit.SQLite.Driver)
	envBool("CPRULES_AUDIT_SQLITE_WAL_MODE", &cfg.Audit.SQLite.WALMode)
	envDuration("CPRULES_AUDIT_SQLITE_BUSY_TIMEOUT", &cfg.Audit.SQLite.BusyTimeout)
	envString("CPRULES_AUDIT_REDIS_ADDRESS", &cfg.Audit.Redis.Address)
	envString("CPRULES_AUDIT_REDIS_PASSWORD", &cfg.Audit.Redis.Password)
	envInt("CPRULES_AUDIT_REDIS_DB", &cfg.Audit.Redis.DB)
	envString("CPRULES_AUDIT_REDIS_PREFIX", &cfg.Audit.Redis.Prefix)
	envInt("CPRULES_AUDIT_RECORDER_ASYNC_BUFFER", &cfg.Audit.Recorder.AsyncBuffer)
	envDuration("CPRULES_AUDIT_RECORDER_WRITE_TIMEOUT", &cfg.Audit.Recorder.WriteTimeout)
	envInt("CPRULES_AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	envString("CPRULES_AUDIT_RETENTION_PRUNE_SCHEDULE", &cfg.Audit.Retention.PruneSchedule)
	envBool("CPRULES_AUDIT_RETENTION_ARCHIVE_BEFORE_DELETE", &cfg.Audit.Retention.ArchiveBeforeDelete)
	envString("CPRULES_AUDIT_RETENTION_ARCHIVE_PATH", &cfg.Audit.Retention.ArchivePath)
	envInt64("CPRULES_AUDIT_RETENTION_MAX_RECORDS", &cfg.Audit.Retention.MaxRecords)

	// Scenarios
	envString("CPRULES_SCENARIOS_PATH", &cfg.Scenarios.Path)
	envDuration("CPRULES_SCENARIOS_DEBOUNCE", &cfg.Scenarios.Debounce)

	// Telemetry
	envString("CPRULES_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("CPRULES_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("CPRULES_TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("CPRULES_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("CPRULES_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("CPRULES_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("CPRULES_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("CPRULES_TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
}

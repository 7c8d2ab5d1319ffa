package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// holding every failure, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateScenarios(&cfg.Scenarios)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: fmt.Sprintf("invalid address: %v", err)})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateTLS(&cfg.TLS)...)

	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if cfg.CertFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "certificate file is required when TLS is enabled"})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "key file is required when TLS is enabled"})
	}
	switch cfg.MinVersion {
	case "1.2", "1.3":
	default:
		errs = append(errs, FieldError{Field: "server.tls.min_version", Message: fmt.Sprintf("invalid version %q (must be '1.2' or '1.3')", cfg.MinVersion)})
	}
	switch cfg.ClientAuth {
	case "":
	case "require", "request", "verify_if_given":
		if cfg.ClientCAFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.client_ca_file", Message: "client CA file is required when client_auth is set"})
		}
	default:
		errs = append(errs, FieldError{Field: "server.tls.client_auth", Message: fmt.Sprintf("invalid client auth %q", cfg.ClientAuth)})
	}
	if cfg.ReloadInterval < 0 {
		errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "reload interval must be positive"})
	}
	return errs
}

func validateAuth(cfg *AuthConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if cfg.Header == "" {
		errs = append(errs, FieldError{Field: "server.auth.header", Message: "header is required when auth is enabled"})
	}
	if len(cfg.Keys) == 0 {
		errs = append(errs, FieldError{Field: "server.auth.keys", Message: "at least one key is required when auth is enabled"})
	}

	seen := make(map[string]bool, len(cfg.Keys))
	for i, k := range cfg.Keys {
		field := fmt.Sprintf("server.auth.keys[%d]", i)
		switch {
		case k.Key == "":
			errs = append(errs, FieldError{Field: field + ".key", Message: "key is required"})
		case seen[k.Key]:
			errs = append(errs, FieldError{Field: field + ".key", Message: "duplicate key"})
		}
		seen[k.Key] = true
	}
	return errs
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	if cfg.Priority < 0 {
		errs = append(errs, FieldError{Field: "rules.priority", Message: "priority must be non-negative"})
	}

	switch cfg.Fallback {
	case "allow", "deny":
	default:
		errs = append(errs, FieldError{
			Field:   "rules.fallback",
			Message: fmt.Sprintf("invalid fallback %q (must be 'allow' or 'deny')", cfg.Fallback),
		})
	}

	switch cfg.FailSafeMode {
	case "fail-open", "fail-closed":
	default:
		errs = append(errs, FieldError{
			Field:   "rules.fail_safe_mode",
			Message: fmt.Sprintf("invalid fail-safe mode %q (must be 'fail-open' or 'fail-closed')", cfg.FailSafeMode),
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "audit.sqlite.path", Message: "path is required for sqlite backend"})
		}
		switch cfg.SQLite.Driver {
		case "sqlite3", "sqlite":
		default:
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q (must be 'sqlite3' or 'sqlite')", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{Field: "audit.sqlite.max_open_conns", Message: "must be non-negative"})
		}
		if cfg.SQLite.MaxIdleConns < 0 {
			errs = append(errs, FieldError{Field: "audit.sqlite.max_idle_conns", Message: "must be non-negative"})
		}
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{Field: "audit.redis.address", Message: "address is required for redis backend"})
		} else if _, _, err := net.SplitHostPort(cfg.Redis.Address); err != nil {
			errs = append(errs, FieldError{Field: "audit.redis.address", Message: fmt.Sprintf("invalid address: %v", err)})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{Field: "audit.redis.db", Message: "must be non-negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q (must be 'memory', 'sqlite' or 'redis')", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer <= 0 {
		errs = append(errs, FieldError{Field: "audit.recorder.async_buffer", Message: "async buffer must be positive"})
	}
	if cfg.Recorder.WriteTimeout <= 0 {
		errs = append(errs, FieldError{Field: "audit.recorder.write_timeout", Message: "write timeout must be positive"})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.max_records", Message: "max records must be non-negative"})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	if cfg.Retention.ArchiveBeforeDelete && cfg.Retention.ArchivePath == "" {
		errs = append(errs, FieldError{Field: "audit.retention.archive_path", Message: "archive path is required when archiving"})
	}

	if cfg.Query.DefaultLimit <= 0 {
		errs = append(errs, FieldError{Field: "audit.query.default_limit", Message: "default limit must be positive"})
	}
	if cfg.Query.MaxLimit < cfg.Query.DefaultLimit {
		errs = append(errs, FieldError{Field: "audit.query.max_limit", Message: "max limit must be >= default limit"})
	}

	return errs
}

func validateScenarios(cfg *ScenarioConfig) []FieldError {
	if cfg.Debounce < 0 {
		return []FieldError{{Field: "scenarios.debounce", Message: "debounce must be non-negative"}}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be 'json' or 'text')", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with '/'"})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}

	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{Field: "telemetry.metrics.duration_buckets", Message: "buckets must be strictly increasing"})
			break
		}
	}

	return errs
}

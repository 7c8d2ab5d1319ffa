package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: 5s
rules:
  fallback: "allow"
  fail_safe_mode: "fail-open"
audit:
  enabled: false
  backend: "memory"
  retention:
    days: 0
    prune_schedule: ""
telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("listen address = %s", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("write timeout should default, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Rules.Fallback != "allow" || cfg.Rules.FailSafeMode != "fail-open" {
		t.Errorf("rules = %+v", cfg.Rules)
	}
	if cfg.Audit.Enabled {
		t.Error("audit.enabled: false should be honoured")
	}
	if cfg.Audit.Retention.Days != 0 {
		t.Errorf("retention days = %d, want 0", cfg.Audit.Retention.Days)
	}
	if cfg.Audit.Retention.PruneSchedule != "" {
		t.Errorf("prune schedule = %q, want empty", cfg.Audit.Retention.PruneSchedule)
	}
	if !cfg.Audit.SQLite.WALMode {
		t.Error("unset wal_mode should keep its default")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("log level = %s", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/cprules.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not: a map")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `
rules:
  fallback: "maybe"
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 1 || verr.Errors[0].Field != "rules.fallback" {
		t.Errorf("unexpected errors: %+v", verr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:8000"
rules:
  fallback: "deny"
`)

	t.Setenv("CPRULES_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("CPRULES_RULES_FALLBACK", "allow")
	t.Setenv("CPRULES_AUDIT_BACKEND", "memory")
	t.Setenv("CPRULES_AUDIT_ENABLED", "false")
	t.Setenv("CPRULES_AUDIT_RETENTION_DAYS", "7")
	t.Setenv("CPRULES_SCENARIOS_DEBOUNCE", "250ms")
	t.Setenv("CPRULES_SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("listen address = %s", cfg.Server.ListenAddress)
	}
	if cfg.Rules.Fallback != "allow" {
		t.Errorf("fallback = %s", cfg.Rules.Fallback)
	}
	if cfg.Audit.Backend != "memory" || cfg.Audit.Enabled {
		t.Errorf("audit = %+v", cfg.Audit)
	}
	if cfg.Audit.Retention.Days != 7 {
		t.Errorf("retention days = %d", cfg.Audit.Retention.Days)
	}
	if cfg.Scenarios.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Scenarios.Debounce)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("unparsable override should be ignored, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfig_AuthDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  auth:
    enabled: true
    header: "X-API-Key"
    keys:
      - key: "cpr-editor"
        client: "editor"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Auth.Header != "X-API-Key" || cfg.Server.Auth.Scheme != "" {
		t.Errorf("custom header should keep an empty scheme: %+v", cfg.Server.Auth)
	}

	cfg, err = LoadConfig(writeConfigFile(t, "rules:\n  fallback: deny\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Auth.Header != DefaultAuthHeader || cfg.Server.Auth.Scheme != DefaultAuthScheme {
		t.Errorf("auth defaults = %+v", cfg.Server.Auth)
	}
}

func TestLoadConfigWithEnvOverrides_AuthKeys(t *testing.T) {
	t.Setenv("CPRULES_SERVER_AUTH_ENABLED", "true")
	t.Setenv("CPRULES_SERVER_AUTH_KEYS", "k1, k2,,")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Server.Auth.Enabled {
		t.Error("auth should be enabled")
	}
	if len(cfg.Server.Auth.Keys) != 2 || cfg.Server.Auth.Keys[1].Key != "k2" || cfg.Server.Auth.Keys[0].Client != "env" {
		t.Errorf("keys = %+v", cfg.Server.Auth.Keys)
	}
}

func TestLoadConfigWithEnvOverrides_EmptyPath(t *testing.T) {
	t.Setenv("CPRULES_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("log level = %s", cfg.Telemetry.Logging.Level)
	}
}

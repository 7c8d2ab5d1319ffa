// Package config provides configuration management for cprules.
//
// Configuration is loaded from a YAML file, layered over built-in defaults,
// optionally overridden from the environment and then validated.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("cprules.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("cprules.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CPRULES_SECTION_FIELD:
//
//   - CPRULES_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CPRULES_RULES_FALLBACK overrides rules.fallback
//   - CPRULES_AUDIT_SQLITE_PATH overrides audit.sqlite.path
//   - CPRULES_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - CPRULES_SERVER_AUTH_KEYS appends comma-separated API keys
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
//	if err := config.Initialize("cprules.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer explicit Config instances over the global singleton.
//
// # Example Configuration
//
//	server:
//	  listen_address: "127.0.0.1:8420"
//	  auth:
//	    enabled: true
//	    keys:
//	      - key: "cpr-editor-key"
//	        client: "pathway-editor"
//
//	rules:
//	  fallback: "deny"
//	  fail_safe_mode: "fail-closed"
//
//	audit:
//	  enabled: true
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/audit.db"
//	    driver: "sqlite"
//	  retention:
//	    days: 30
//	    prune_schedule: "0 3 * * *"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config

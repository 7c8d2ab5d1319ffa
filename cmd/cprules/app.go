package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/audit/recorder"
	"cpathways/cprules/pkg/audit/retention"
	"cpathways/cprules/pkg/audit/storage"
	"cpathways/cprules/pkg/cli"
	"cpathways/cprules/pkg/config"
	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/rules"
	"cpathways/cprules/pkg/security/auth"
	cptls "cpathways/cprules/pkg/security/tls"
	"cpathways/cprules/pkg/telemetry/logging"
)

// loadConfig loads the --config file with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(cfg *config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level := cfg.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Redact:    true,
		Writer:    w,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// quietLogger logs errors only, for commands whose output is the result.
func quietLogger(w io.Writer) *slog.Logger {
	level := "error"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Format: "text", Writer: w})
	if err != nil {
		return logging.Discard()
	}
	return logger
}

// newChain builds a rule chain with the clinical pathway rules registered.
func newChain(cfg *config.RulesConfig, logger *slog.Logger) *rules.Chain {
	chain := rules.NewChain(logger)
	rules.NewCPRulesAt(chain, cfg.Priority)
	return chain
}

func engineConfig(cfg *config.RulesConfig) *engine.Config {
	return &engine.Config{
		Fallback:     engine.Fallback(cfg.Fallback),
		FailSafeMode: engine.FailSafeMode(cfg.FailSafeMode),
	}
}

// openStorage opens the configured audit backend.
func openStorage(cfg *config.AuditConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		return s, nil
	case "redis":
		s, err := storage.NewRedisStorage(&storage.RedisConfig{
			Address:     cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			Prefix:      cfg.Redis.Prefix,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to audit redis: %w", err)
		}
		return s, nil
	default:
		return nil, cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

func recorderConfig(cfg *config.RecorderConfig) *recorder.Config {
	return &recorder.Config{
		Enabled:      true,
		AsyncBuffer:  cfg.AsyncBuffer,
		WriteTimeout: cfg.WriteTimeout,
		HashContext:  cfg.HashContext,
	}
}

func retentionConfig(cfg *config.RetentionConfig) *retention.Config {
	return &retention.Config{
		RetentionDays:       cfg.Days,
		PruneSchedule:       cfg.PruneSchedule,
		ArchiveBeforeDelete: cfg.ArchiveBeforeDelete,
		ArchivePath:         cfg.ArchivePath,
		MaxRecords:          cfg.MaxRecords,
	}
}

// authOptions returns the API key store and sources for the server, or a nil
// store when auth is disabled.
func authOptions(cfg *config.AuthConfig) (auth.KeyStore, []auth.KeySource) {
	if !cfg.Enabled {
		return nil, nil
	}

	keys := make([]*auth.KeyInfo, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys = append(keys, &auth.KeyInfo{Key: k.Key, Client: k.Client, Enabled: !k.Disabled})
	}
	sources := []auth.KeySource{{Type: auth.SourceHeader, Name: cfg.Header, Scheme: cfg.Scheme}}
	return auth.NewValidator(keys), sources
}

// serverTLS loads the certificate and keeps it fresh until ctx is done.
// It returns nil when TLS is disabled.
func serverTLS(ctx context.Context, cfg *config.TLSConfig, logger *slog.Logger) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	tc := &cptls.Config{
		CertFile:       cfg.CertFile,
		KeyFile:        cfg.KeyFile,
		MinVersion:     cfg.MinVersion,
		ClientCAFile:   cfg.ClientCAFile,
		ClientAuth:     cfg.ClientAuth,
		ReloadInterval: cfg.ReloadInterval,
	}
	if err := tc.Validate(); err != nil {
		return nil, cli.NewConfigError("server.tls", err.Error())
	}

	reloader := cptls.NewReloader(tc.CertFile, tc.KeyFile, tc.ReloadInterval, logger)
	if err := reloader.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	return tc.ServerConfig(reloader)
}

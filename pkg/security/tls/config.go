package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"
)

// Client authentication modes.
const (
	ClientAuthNone          = ""
	ClientAuthRequest       = "request"
	ClientAuthVerifyIfGiven = "verify_if_given"
	ClientAuthRequire       = "require"
)

// Config describes the server's TLS settings.
type Config struct {
	CertFile string
	KeyFile  string

	// MinVersion is "1.2" or "1.3". Default "1.3".
	MinVersion string

	// ClientCAFile enables client certificate verification against the
	// CAs it contains. ClientAuth selects the mode; default "require".
	ClientCAFile string
	ClientAuth   string

	// ReloadInterval is how often a Reloader checks the files for changes.
	ReloadInterval time.Duration
}

// Validate checks the fields without touching the filesystem.
func (c *Config) Validate() error {
	var errs []error
	if c.CertFile == "" {
		errs = append(errs, errors.New("cert_file is required"))
	}
	if c.KeyFile == "" {
		errs = append(errs, errors.New("key_file is required"))
	}
	if _, err := parseVersion(c.MinVersion); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseClientAuth(c.ClientAuth); err != nil {
		errs = append(errs, err)
	}
	if c.ClientAuth != ClientAuthNone && c.ClientCAFile == "" {
		errs = append(errs, errors.New("client_ca_file is required when client_auth is set"))
	}
	return errors.Join(errs...)
}

// ServerConfig returns a crypto/tls configuration serving certificates from
// reloader. A nil reloader loads CertFile and KeyFile once.
func (c *Config) ServerConfig(reloader *Reloader) (*tls.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	version, _ := parseVersion(c.MinVersion)
	// #nosec G402 - MinVersion is validated; TLS 1.0 and 1.1 are rejected
	cfg := &tls.Config{MinVersion: version}

	if reloader != nil {
		cfg.GetCertificate = reloader.GetCertificateFunc()
	} else {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate: %w", err)
		}
		if err := ValidateCertificate(&cert); err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if c.ClientCAFile != "" {
		pool, err := loadCertPool(c.ClientCAFile)
		if err != nil {
			return nil, err
		}
		mode := c.ClientAuth
		if mode == ClientAuthNone {
			mode = ClientAuthRequire
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth, _ = parseClientAuth(mode)
	}

	return cfg, nil
}

func parseVersion(v string) (uint16, error) {
	switch v {
	case "", "1.3":
		return tls.VersionTLS13, nil
	case "1.2":
		return tls.VersionTLS12, nil
	default:
		return 0, fmt.Errorf("unsupported min_version %q (must be '1.2' or '1.3')", v)
	}
}

func parseClientAuth(mode string) (tls.ClientAuthType, error) {
	switch mode {
	case ClientAuthNone:
		return tls.NoClientCert, nil
	case ClientAuthRequest:
		return tls.RequestClientCert, nil
	case ClientAuthVerifyIfGiven:
		return tls.VerifyClientCertIfGiven, nil
	case ClientAuthRequire:
		return tls.RequireAndVerifyClientCert, nil
	default:
		return 0, fmt.Errorf("unsupported client_auth %q", mode)
	}
}

func loadCertPool(path string) (*x509.CertPool, error) {
	// #nosec G304 - CA path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

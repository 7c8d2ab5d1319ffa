package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultReloadInterval is used when NewReloader gets a non-positive interval.
const DefaultReloadInterval = 5 * time.Minute

// Reloader serves a certificate pair from disk and reloads it when either
// file's modification time changes.
type Reloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	certTime time.Time
	keyTime  time.Time
}

// NewReloader creates a reloader. Call Start before serving.
func NewReloader(certFile, keyFile string, interval time.Duration, logger *slog.Logger) *Reloader {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		logger:   logger.With("component", "tls"),
	}
}

// Start loads the certificate and checks for changes every interval until
// ctx is done. It fails if the initial load fails.
func (r *Reloader) Start(ctx context.Context) error {
	if err := r.Reload(); err != nil {
		return err
	}
	r.logCertificate()

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !r.changed() {
					continue
				}
				if err := r.Reload(); err != nil {
					r.logger.Error("failed to reload certificate", "error", err, "cert_file", r.certFile)
					continue
				}
				r.logger.Info("certificate reloaded", "cert_file", r.certFile)
				r.logCertificate()
			}
		}
	}()
	return nil
}

// Reload loads and validates the pair now. On failure the previous
// certificate stays in use.
func (r *Reloader) Reload() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return fmt.Errorf("certificate file: %w", err)
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return fmt.Errorf("key file: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()
	r.mu.Unlock()
	return nil
}

func (r *Reloader) changed() bool {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return !certInfo.ModTime().Equal(r.certTime) || !keyInfo.ModTime().Equal(r.keyTime)
}

// Certificate returns the current certificate, or nil before Start.
func (r *Reloader) Certificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// GetCertificateFunc adapts the reloader to tls.Config.GetCertificate.
func (r *Reloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		if cert := r.Certificate(); cert != nil {
			return cert, nil
		}
		return nil, errors.New("no certificate loaded")
	}
}

func (r *Reloader) logCertificate() {
	leaf, err := leafOf(r.Certificate())
	if err != nil {
		return
	}

	left, soon := ExpiresSoon(leaf, time.Now())
	attrs := []any{
		"subject", leaf.Subject.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
		"expires_in_days", int(left.Hours() / 24),
	}
	if soon {
		r.logger.Warn("certificate expiring soon", attrs...)
		return
	}
	r.logger.Info("certificate loaded", attrs...)
}

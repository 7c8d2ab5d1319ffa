package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"
)

// ExpiryWarning is how close to expiry a certificate gets logged as a warning.
const ExpiryWarning = 30 * 24 * time.Hour

// ValidateCertificate checks that the leaf certificate is currently valid.
func ValidateCertificate(cert *tls.Certificate) error {
	leaf, err := leafOf(cert)
	if err != nil {
		return err
	}
	return ValidateX509Certificate(leaf, time.Now())
}

// ValidateX509Certificate checks cert's validity window against now.
func ValidateX509Certificate(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// ExpiresSoon reports the time left on cert and whether it is under ExpiryWarning.
func ExpiresSoon(cert *x509.Certificate, now time.Time) (time.Duration, bool) {
	left := cert.NotAfter.Sub(now)
	return left, left < ExpiryWarning
}

func leafOf(cert *tls.Certificate) (*x509.Certificate, error) {
	if cert == nil || len(cert.Certificate) == 0 {
		return nil, errors.New("certificate chain is empty")
	}
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return leaf, nil
}

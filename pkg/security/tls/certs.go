package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"
)

// leafOf parses the leaf of cert and checks its validity window at now.
func leafOf(cert *tls.Certificate, now time.Time) (*x509.Certificate, error) {
	if cert == nil || len(cert.Certificate) == 0 {
		return nil, errors.New("certificate chain is empty")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	if now.Before(leaf.NotBefore) {
		return nil, fmt.Errorf("certificate is not yet valid (valid from %s)", leaf.NotBefore.Format(time.RFC3339))
	}
	if now.After(leaf.NotAfter) {
		return nil, fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}
	return leaf, nil
}

// Status describes the certificate currently served.
type Status struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	DNSNames  []string  `json:"dns_names,omitempty"`
	NotAfter  time.Time `json:"not_after"`
	ExpiresIn string    `json:"expires_in"`
	LoadedAt  time.Time `json:"loaded_at"`
	Reloads   int64     `json:"reloads"`
}

func statusOf(leaf *x509.Certificate, loadedAt time.Time, reloads int64, now time.Time) Status {
	return Status{
		Subject:   leaf.Subject.String(),
		Issuer:    leaf.Issuer.String(),
		DNSNames:  leaf.DNSNames,
		NotAfter:  leaf.NotAfter,
		ExpiresIn: leaf.NotAfter.Sub(now).Truncate(time.Minute).String(),
		LoadedAt:  loadedAt,
		Reloads:   reloads,
	}
}

package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// CertificateReloader serves a certificate pair from disk and reloads it
// when either file's modification time changes. A failed reload keeps the
// previous certificate.
type CertificateReloader struct {
	certFile      string
	keyFile       string
	interval      time.Duration
	expiryWarning time.Duration
	logger        *slog.Logger
	now           func() time.Time

	mu       sync.RWMutex
	cert     *tls.Certificate
	leaf     *x509.Certificate
	certTime time.Time
	keyTime  time.Time
	loadedAt time.Time
	reloads  int64
}

// ReloaderOption configures a CertificateReloader.
type ReloaderOption func(*CertificateReloader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ReloaderOption {
	return func(r *CertificateReloader) { r.logger = l }
}

// WithClock sets the time source used for validity checks.
func WithClock(now func() time.Time) ReloaderOption {
	return func(r *CertificateReloader) { r.now = now }
}

// WithExpiryWarning sets how close to expiry Status reports degraded.
func WithExpiryWarning(d time.Duration) ReloaderOption {
	return func(r *CertificateReloader) { r.expiryWarning = d }
}

// NewCertificateReloader loads the pair once and returns a reloader that
// checks for changes every interval once Run is called.
func NewCertificateReloader(certFile, keyFile string, interval time.Duration, opts ...ReloaderOption) (*CertificateReloader, error) {
	r := &CertificateReloader{
		certFile:      certFile,
		keyFile:       keyFile,
		interval:      interval,
		expiryWarning: 30 * 24 * time.Hour,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.reload(); err != nil {
		return nil, err
	}
	r.logCertificate("certificate loaded")
	return r, nil
}

// Run polls for changes until ctx is cancelled. An interval of zero
// disables reloading.
func (r *CertificateReloader) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.ReloadIfChanged(); err != nil {
				r.logger.Error("failed to reload certificate",
					"error", err,
					"cert_file", r.certFile,
					"key_file", r.keyFile,
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

// ReloadIfChanged reloads the pair when either file is newer than the last
// load and reports whether it did.
func (r *CertificateReloader) ReloadIfChanged() (bool, error) {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false, err
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false, err
	}

	r.mu.RLock()
	changed := !certInfo.ModTime().Equal(r.certTime) || !keyInfo.ModTime().Equal(r.keyTime)
	r.mu.RUnlock()
	if !changed {
		return false, nil
	}

	if err := r.reload(); err != nil {
		return false, err
	}
	r.logCertificate("certificate reloaded")
	return true, nil
}

func (r *CertificateReloader) reload() error {
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
		return fmt.Errorf("load certificate: %w", err)
	}
	leaf, err := leafOf(&cert, r.now())
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.cert != nil {
		r.reloads++
	}
	r.cert = &cert
	r.leaf = leaf
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()
	r.loadedAt = r.now()
	r.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// Check fails once the served certificate has expired.
func (r *CertificateReloader) Check(ctx context.Context) error {
	r.mu.RLock()
	leaf := r.leaf
	r.mu.RUnlock()

	if r.now().After(leaf.NotAfter) {
		return errors.New("certificate expired on " + leaf.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// Status describes the served certificate and reports degraded when it
// expires within the warning window.
func (r *CertificateReloader) Status() (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	return statusOf(r.leaf, r.loadedAt, r.reloads, now), r.leaf.NotAfter.Sub(now) < r.expiryWarning
}

func (r *CertificateReloader) logCertificate(msg string) {
	status, expiring := r.Status()
	attrs := []any{
		"subject", status.Subject,
		"issuer", status.Issuer,
		"expires_at", status.NotAfter.Format(time.RFC3339),
	}
	if expiring {
		r.logger.Warn("certificate expiring soon", attrs...)
		return
	}
	r.logger.Info(msg, attrs...)
}

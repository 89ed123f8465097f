package tls

import (
	"crypto/tls"
	"fmt"

	"mercator-hq/aegis/pkg/config"
)

// ServerConfig builds the listener TLS configuration. The certificate is
// served from certs on every handshake, so a reload takes effect for new
// connections immediately.
func ServerConfig(cfg config.TLSConfig, certs *CertificateReloader) (*tls.Config, error) {
	minVersion, err := parseVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}
	suites, err := parseCipherSuites(cfg.CipherSuites)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is validated; TLS 1.0 and 1.1 are rejected
	return &tls.Config{
		MinVersion:     minVersion,
		CipherSuites:   suites,
		GetCertificate: certs.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
	}, nil
}

func parseVersion(v string) (uint16, error) {
	switch v {
	case "1.2", "":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q (must be 1.2 or 1.3)", v)
	}
}

// parseCipherSuites maps suite names to IDs. Nil keeps Go's defaults.
func parseCipherSuites(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}

	suites := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherSuites[name]
		if !ok {
			return nil, fmt.Errorf("unsupported cipher suite %q", name)
		}
		suites = append(suites, id)
	}
	return suites, nil
}

// cipherSuites lists the accepted TLS 1.2 suites. TLS 1.3 suites are not
// configurable.
var cipherSuites = map[string]uint16{
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":         tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":         tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256":       tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384":       tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256":   tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256": tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}

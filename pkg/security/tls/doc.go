/*
Package tls terminates HTTPS on the Aegis listener.

A CertificateReloader serves the configured certificate pair and polls the
files for changes, so a renewed certificate is picked up without a restart.
A reload that fails (unreadable files, mismatched key, expired certificate)
is logged and the previous certificate stays in service.

	certs, err := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval)
	if err != nil {
	    return err
	}
	go certs.Run(ctx)

	tlsConfig, err := tls.ServerConfig(cfg, certs)
	if err != nil {
	    return err
	}
	ln = cryptotls.NewListener(ln, tlsConfig)

Check fails readiness once the certificate has expired; Status feeds the
detailed health report and turns degraded inside the expiry warning window.
*/
package tls

// Package tls builds the server-side TLS configuration for the cprules HTTP
// API: certificate loading, minimum protocol version, optional client
// certificate verification, and a Reloader that picks up renewed
// certificates without a restart.
//
//	reloader := tls.NewReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
//	if err := reloader.Start(ctx); err != nil {
//	    return err
//	}
//	tlsConfig, err := cfg.ServerConfig(reloader)
package tls

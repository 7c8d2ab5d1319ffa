/*
Package auth provides API key authentication for the cprules HTTP API.

Keys come from configuration. A Middleware extracts the key from the
configured sources, validates it against a KeyStore and stores the
authenticated KeyInfo in the request context:

	validator := auth.NewValidator([]*auth.KeyInfo{
		{Key: "cpr-editor-1", Client: "pathway-editor", Enabled: true},
	})

	mw := auth.NewMiddleware(validator, []auth.KeySource{
		{Type: auth.SourceHeader, Name: "Authorization", Scheme: "Bearer"},
		{Type: auth.SourceHeader, Name: "X-API-Key"},
	}, logger)

	mux.Handle("/v1/", mw.Handle(handler))

Handlers read the caller with ClientFromContext or KeyInfoFromContext.

Keys are looked up by their SHA-256 digest; the raw key is never used as a
map key or logged.
*/
package auth

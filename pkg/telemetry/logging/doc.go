// Package logging builds the structured slog loggers used across cprules.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logger.Info("rule evaluated",
//	    "action", "connection.create",
//	    "verdict", "qualified",
//	)
//
// # Request Context
//
// Request and session identifiers travel on the context.Context and are
// attached with FromContext:
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logging.FromContext(ctx, logger).Info("evaluating")
//
// # Redaction
//
// When Redact is set, values of sensitive keys (tokens, passwords,
// authorization headers) and bearer tokens or email addresses embedded in
// string values are masked before they reach the handler.
package logging

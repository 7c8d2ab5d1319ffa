// Package tracing provides OpenTelemetry tracing for cprules.
//
// When enabled, spans are exported over OTLP gRPC. The engine records a
// "rules.evaluate" span per decision and the HTTP server records one span per
// request, continuing any W3C traceparent sent by the caller.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	eng, _ := engine.New(chain, engineCfg, logger, engine.WithTracer(tracer.Tracer()))
//
// When disabled, New returns a tracer backed by a no-op provider.
package tracing

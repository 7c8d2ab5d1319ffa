package tracing

import (
	"context"
	"net/http"
	"testing"

	"cpathways/cprules/pkg/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("expected disabled tracer")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("no-op span should have an invalid span context")
	}
	if TraceID(ctx) != "" {
		t.Error("no-op span should not carry a trace ID")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewWithExporter(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestNewWithExporter(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	cfg := &config.TracingConfig{Enabled: true, ServiceName: "cprules-test", SampleRatio: 1.0}

	tracer, err := NewWithExporter(cfg, sdktrace.WithSpanProcessor(sr))
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, parent := tracer.Start(context.Background(), "parent")
	_, child := tracer.Start(ctx, "child")
	child.End()
	parent.End()

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("child span not linked to parent")
	}

	found := false
	for _, kv := range spans[1].Resource().Attributes() {
		if kv.Key == "service.name" && kv.Value.AsString() == "cprules-test" {
			found = true
		}
	}
	if !found {
		t.Error("service.name resource attribute missing")
	}
}

func TestCreateSampler(t *testing.T) {
	for _, ratio := range []float64{0, 0.25, 1} {
		if _, err := createSampler(ratio); err != nil {
			t.Errorf("createSampler(%v) error = %v", ratio, err)
		}
	}
	for _, ratio := range []float64{-0.1, 1.1} {
		if _, err := createSampler(ratio); err == nil {
			t.Errorf("createSampler(%v) should fail", ratio)
		}
	}
}

func TestSampler_NeverRecordsNothing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tracer, err := NewWithExporter(&config.TracingConfig{SampleRatio: 0}, sdktrace.WithSpanProcessor(sr))
	if err != nil {
		t.Fatal(err)
	}

	_, span := tracer.Start(context.Background(), "dropped")
	span.End()

	if len(sr.Ended()) != 0 {
		t.Error("ratio 0 should sample nothing")
	}
}

func TestExtractInject(t *testing.T) {
	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	in := http.Header{}
	in.Set("traceparent", traceparent)

	ctx := Extract(context.Background(), in)
	if got := TraceID(ctx); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("TraceID() = %q", got)
	}

	out := http.Header{}
	Inject(ctx, out)
	if out.Get("traceparent") != traceparent {
		t.Errorf("injected traceparent = %q", out.Get("traceparent"))
	}

	if TraceID(Extract(context.Background(), http.Header{})) != "" {
		t.Error("missing header should yield no trace ID")
	}
}

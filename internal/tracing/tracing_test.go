package tracing_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/kvcrank/internal/config"
	"github.com/torosent/kvcrank/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestInitDisabledByDefault(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if p.Enabled() {
		t.Error("Enabled() = true, want false without endpoint")
	}

	// Tracer should return a no-op (no panic)
	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("expected an invalid span context from the no-op tracer")
	}
}

func TestInitWithEndpointEnablesTracing(t *testing.T) {
	// The exporter connects lazily, so no collector is needed here.
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:    "localhost:4317",
		Protocol:    "grpc",
		ServiceName: "test-service",
		SampleRate:  1.0,
		Insecure:    true,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if !p.Enabled() {
		t.Error("Enabled() = false, want true")
	}
}

func TestInitHTTPProtocol(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:   "localhost:4318",
		Protocol:   "http",
		Insecure:   true,
		SampleRate: 0.5,
	})
	if err != nil {
		t.Fatalf("Init() with http protocol error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if !p.Enabled() {
		t.Error("Enabled() = false, want true")
	}
}

func TestInitUnsupportedProtocol(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4317",
		Protocol: "thrift",
		Insecure: true,
	})
	if err == nil {
		t.Fatal("Init() with unsupported protocol should return error")
	}
}

func TestInitInvalidSampleRate(t *testing.T) {
	for _, rate := range []float64{-0.5, 1.5} {
		_, err := tracing.Init(context.Background(), config.TracingConfig{
			Endpoint:   "localhost:4317",
			Protocol:   "grpc",
			Insecure:   true,
			SampleRate: rate,
		})
		if err == nil {
			t.Fatalf("Init() with sample_rate=%g should return error", rate)
		}
	}
}

func TestNilProviderSafety(t *testing.T) {
	var p *tracing.Provider
	if p.Enabled() {
		t.Error("nil provider Enabled() = true")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
}

func TestRunAndWorkerSpans(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	ctx, run := tracing.StartRunSpan(context.Background(), tracer, "basic", 4, 100)
	_, worker := tracing.StartWorkerSpan(ctx, tracer, "basic", 3)
	tracing.EndSpan(worker, errors.New("connection reset"))
	tracing.EndSpan(run, nil, attribute.Int64("kvcrank.operations", 600))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	w, r := spans[0], spans[1]

	if w.Name != "worker basic" {
		t.Errorf("worker span name = %q", w.Name)
	}
	if w.Parent.SpanID() != r.SpanContext.SpanID() {
		t.Error("worker span is not a child of the run span")
	}
	if v, ok := attr(w.Attributes, "kvcrank.worker"); !ok || v.AsInt64() != 3 {
		t.Errorf("kvcrank.worker = %v", v)
	}
	if w.Status.Code != codes.Error {
		t.Errorf("worker status = %v, want Error", w.Status.Code)
	}

	if r.Name != "kvcrank run" {
		t.Errorf("run span name = %q", r.Name)
	}
	if v, ok := attr(r.Attributes, "kvcrank.clients"); !ok || v.AsInt64() != 4 {
		t.Errorf("kvcrank.clients = %v", v)
	}
	if v, ok := attr(r.Attributes, "kvcrank.operations"); !ok || v.AsInt64() != 600 {
		t.Errorf("kvcrank.operations = %v", v)
	}
	if r.Status.Code != codes.Ok {
		t.Errorf("run status = %v, want Ok", r.Status.Code)
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "test-error")
	tracing.EndSpan(span, context.DeadlineExceeded)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status code = %d, want %d (Error)", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected an exception event")
	}
}

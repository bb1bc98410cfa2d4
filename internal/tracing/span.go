package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan starts the root span covering one load run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, scenario string, clients, requests int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "kvcrank run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("kvcrank.scenario", scenario),
			attribute.Int("kvcrank.clients", clients),
			attribute.Int("kvcrank.requests", requests),
		),
	)
}

// StartWorkerSpan starts a span for one worker. Command spans recorded by the
// client instrumentation become its children.
func StartWorkerSpan(ctx context.Context, tracer trace.Tracer, scenario string, workerID int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "worker "+scenario,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("kvcrank.scenario", scenario),
			attribute.Int("kvcrank.worker", workerID),
		),
	)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

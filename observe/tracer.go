package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer opens one span per intercepted call.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: EndSpan never panics; a nil error marks the span Ok.
type Tracer interface {
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type spanTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer. A nil tracer yields a no-op.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return newNoopTracer()
	}
	return &spanTracer{tracer: t}
}

func newNoopTracer() Tracer {
	return &spanTracer{tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName)}
}

func (t *spanTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := append(callAttrs(meta), attribute.Bool("call.error", false))
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("call.version", meta.Version))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("call.tags", meta.Tags))
	}
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *spanTracer) EndSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	// A canceled rate limit wait surfaces here as a context error.
	abandoned := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	span.SetAttributes(
		attribute.Bool("call.error", true),
		attribute.Bool("call.abandoned", abandoned),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

package observe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracer_SpanAttributes(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	meta := CallMeta{Component: "jikan", Name: "anime", Version: "v4", Tags: []string{"read"}}
	_, span := tracer.StartSpan(context.Background(), meta)
	tracer.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]

	if got.Name() != "call.jikan.anime" {
		t.Errorf("span name = %q, want call.jikan.anime", got.Name())
	}
	if v, _ := spanAttr(got, "call.id"); v.AsString() != "jikan.anime" {
		t.Errorf("call.id = %q", v.AsString())
	}
	if v, _ := spanAttr(got, "call.version"); v.AsString() != "v4" {
		t.Errorf("call.version = %q", v.AsString())
	}
	if v, ok := spanAttr(got, "call.tags"); !ok || len(v.AsStringSlice()) != 1 {
		t.Errorf("call.tags = %v", v.AsStringSlice())
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", got.Status().Code)
	}
}

func TestTracer_ErrorRecording(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), CallMeta{Name: "request"})
	tracer.EndSpan(span, errors.New("503 service unavailable"))

	got := recorder.Ended()[0]
	if got.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", got.Status().Code)
	}
	if v, _ := spanAttr(got, "call.error"); !v.AsBool() {
		t.Error("call.error = false, want true")
	}
	if len(got.Events()) == 0 {
		t.Error("expected an exception event")
	}
	if v, _ := spanAttr(got, "call.abandoned"); v.AsBool() {
		t.Error("call.abandoned = true, want false")
	}
}

func TestTracer_AbandonedCall(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), CallMeta{Name: "request"})
	tracer.EndSpan(span, fmt.Errorf("wait: %w", context.DeadlineExceeded))

	if v, _ := spanAttr(recorder.Ended()[0], "call.abandoned"); !v.AsBool() {
		t.Error("call.abandoned = false, want true")
	}
}

func TestTracer_ContextPropagation(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	ctx, parent := tracer.StartSpan(context.Background(), CallMeta{Name: "outer"})
	_, child := tracer.StartSpan(ctx, CallMeta{Name: "inner"})
	tracer.EndSpan(child, nil)
	tracer.EndSpan(parent, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("inner span is not a child of outer span")
	}
}

func TestNewTracer_NilIsNoop(t *testing.T) {
	tracer := NewTracer(nil)
	_, span := tracer.StartSpan(context.Background(), CallMeta{Name: "noop"})
	tracer.EndSpan(span, errors.New("ignored"))
}

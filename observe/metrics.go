package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records call, cache and throttle metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed call with duration and error status.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordCacheLookup records a memoization lookup outcome.
	RecordCacheLookup(ctx context.Context, meta CallMeta, hit bool)

	// RecordEviction records a capacity eviction.
	RecordEviction(ctx context.Context, meta CallMeta)

	// RecordThrottle records the delay imposed on a call by a rate limiter.
	RecordThrottle(ctx context.Context, meta CallMeta, wait time.Duration)
}

type metricsImpl struct {
	callCount    metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	lookupCount  metric.Int64Counter
	evictCount   metric.Int64Counter
	waitHist     metric.Float64Histogram
}

// NewMetrics creates a Metrics instance registering instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	callCount, err := meter.Int64Counter(
		"call.total",
		metric.WithDescription("Total number of intercepted calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"call.errors",
		metric.WithDescription("Total number of failed intercepted calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"call.duration_ms",
		metric.WithDescription("Intercepted call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookupCount, err := meter.Int64Counter(
		"cache.lookups",
		metric.WithDescription("Memoization lookups, labelled by hit"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	evictCount, err := meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Entries evicted to respect capacity"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	waitHist, err := meter.Float64Histogram(
		"ratelimit.wait_ms",
		metric.WithDescription("Delay imposed by rate limiting in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		callCount:    callCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		lookupCount:  lookupCount,
		evictCount:   evictCount,
		waitHist:     waitHist,
	}, nil
}

func callAttrs(meta CallMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("call.id", meta.CallID()),
		attribute.String("call.name", meta.Name),
	}
	if meta.Component != "" {
		attrs = append(attrs, attribute.String("call.component", meta.Component))
	}
	return attrs
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(callAttrs(meta)...)

	m.callCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, durationMillis(duration), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, meta CallMeta, hit bool) {
	attrs := append(callAttrs(meta), attribute.Bool("cache.hit", hit))
	m.lookupCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordEviction(ctx context.Context, meta CallMeta) {
	m.evictCount.Add(ctx, 1, metric.WithAttributes(callAttrs(meta)...))
}

func (m *metricsImpl) RecordThrottle(ctx context.Context, meta CallMeta, wait time.Duration) {
	m.waitHist.Record(ctx, durationMillis(wait), metric.WithAttributes(callAttrs(meta)...))
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type nopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordCall(context.Context, CallMeta, time.Duration, error) {}
func (nopMetrics) RecordCacheLookup(context.Context, CallMeta, bool)          {}
func (nopMetrics) RecordEviction(context.Context, CallMeta)                   {}
func (nopMetrics) RecordThrottle(context.Context, CallMeta, time.Duration)    {}

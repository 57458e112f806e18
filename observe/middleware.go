package observe

import (
	"context"
	"time"

	"github.com/jikan4/jikan4/call"
)

// Middleware wraps calls with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: wrapped callables are safe for concurrent use if the inner one is.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped call are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components become no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Metrics returns the metrics sink used by the middleware.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap returns c instrumented for the call site described by meta.
func Wrap[In, Out any](m *Middleware, meta CallMeta, c call.Callable[In, Out]) call.Callable[In, Out] {
	logger := m.logger.WithCall(meta)

	return call.Func[In, Out](func(ctx context.Context, in In) (Out, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		out, err := c.Call(ctx, in)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, duration, err)

		fields := []Field{
			{Key: "duration_ms", Value: durationMillis(duration)},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "call failed", fields...)
		} else {
			logger.Debug(ctx, "call completed", fields...)
		}

		return out, err
	})
}

// Wrapper adapts Wrap for use with call.Chain.
func Wrapper[In, Out any](m *Middleware, meta CallMeta) call.Wrapper[In, Out] {
	return func(c call.Callable[In, Out]) call.Callable[In, Out] {
		return Wrap(m, meta, c)
	}
}

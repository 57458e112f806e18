package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/jikan4/jikan4/call"
	"github.com/jikan4/jikan4/observe"
)

// Option configures a Memoizer.
type Option func(*options)

type options struct {
	keyer   Keyer
	meta    observe.CallMeta
	metrics observe.Metrics
	logger  observe.Logger
	dedup   bool
}

// WithKeyer overrides key derivation. The default is a shared Codec.
func WithKeyer(k Keyer) Option {
	return func(o *options) {
		if k != nil {
			o.keyer = k
		}
	}
}

// WithCallMeta names the memoized call site in telemetry.
func WithCallMeta(meta observe.CallMeta) Option {
	return func(o *options) { o.meta = meta }
}

// WithMetrics reports lookups and evictions to m.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLogger logs misses and evictions at debug level.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSingleflight coalesces concurrent misses on the same key into one
// inner call whose result every waiter receives. Without it, each
// concurrent miss runs the inner call and the last write wins.
//
// The coalesced call runs without the first caller's cancellation. A
// caller whose ctx ends stops waiting with ctx.Err(); the others still
// receive the result, and a success is still stored.
func WithSingleflight() Option {
	return func(o *options) { o.dedup = true }
}

var defaultCodec = NewCodec()

// Memoizer is a Callable that serves repeated calls from an LRU.
//
// Contract:
//   - Hits return the stored value without invoking the inner callable.
//   - Misses invoke the inner callable; successes are stored with Put.
//   - Failures propagate unchanged and are never stored.
type Memoizer[In, Out any] struct {
	inner  call.Callable[In, Out]
	cache  *LRU[Out]
	opts   options
	logger observe.Logger
	group  *singleflight.Group
}

// Memoize wraps inner so that repeated calls with equal keys are served by cache.
func Memoize[In, Out any](cache *LRU[Out], inner call.Callable[In, Out], opts ...Option) *Memoizer[In, Out] {
	o := options{
		keyer:   defaultCodec,
		meta:    observe.CallMeta{Name: "memoize"},
		metrics: observe.NopMetrics(),
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Memoizer[In, Out]{
		inner:  inner,
		cache:  cache,
		opts:   o,
		logger: o.logger.WithCall(o.meta),
	}
	if o.dedup {
		m.group = &singleflight.Group{}
	}
	return m
}

// Wrap is Memoize expressed as a call.Wrapper, for use with call.Chain.
func Wrap[In, Out any](cache *LRU[Out], opts ...Option) call.Wrapper[In, Out] {
	return func(inner call.Callable[In, Out]) call.Callable[In, Out] {
		return Memoize(cache, inner, opts...)
	}
}

// Key returns the cache key the memoizer uses for in.
func (m *Memoizer[In, Out]) Key(in In) Key {
	return m.opts.keyer.Key(in)
}

// Cache returns the backing LRU.
func (m *Memoizer[In, Out]) Cache() *LRU[Out] {
	return m.cache
}

// Call serves in from the cache or computes and stores it.
func (m *Memoizer[In, Out]) Call(ctx context.Context, in In) (Out, error) {
	if m.cache == nil {
		var zero Out
		return zero, ErrNilCache
	}

	key := m.Key(in)

	if v, ok := m.cache.Get(key); ok {
		m.opts.metrics.RecordCacheLookup(ctx, m.opts.meta, true)
		return v, nil
	}
	m.opts.metrics.RecordCacheLookup(ctx, m.opts.meta, false)
	m.logger.Debug(ctx, "cache miss", observe.F("cache.len", m.cache.Len()))

	if m.group == nil {
		return m.compute(ctx, key, in)
	}

	// The shared call outlives any one caller; each caller waits on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(string(key), func() (any, error) {
		return m.compute(shared, key, in)
	})
	select {
	case <-ctx.Done():
		var zero Out
		return zero, ctx.Err()
	case r := <-ch:
		if r.Shared {
			m.logger.Debug(ctx, "joined in-flight call")
		}
		// A nil interface result fails the assertion and yields the zero Out.
		out, _ := r.Val.(Out)
		return out, r.Err
	}
}

func (m *Memoizer[In, Out]) compute(ctx context.Context, key Key, in In) (Out, error) {
	out, err := m.inner.Call(ctx, in)
	if err != nil {
		return out, err
	}

	if evicted, ok := m.cache.put(key, out); ok {
		m.opts.metrics.RecordEviction(ctx, m.opts.meta)
		m.logger.Debug(ctx, "cache eviction", observe.F("cache.evicted_key", string(evicted)))
	}
	return out, nil
}

// Ensure Memoizer implements Callable
var _ call.Callable[int, int] = (*Memoizer[int, int])(nil)

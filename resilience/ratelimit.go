package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jikan4/jikan4/call"
	"github.com/jikan4/jikan4/observe"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// MaxCalls is the number of call starts allowed per Period.
	// Default: 60
	MaxCalls int `mapstructure:"max_calls"`

	// Period is the rolling window length.
	// Default: 1 minute
	Period time.Duration `mapstructure:"period"`

	// Spread spaces starts at least Period/MaxCalls apart.
	// Default: true
	Spread bool `mapstructure:"spread"`
}

// DefaultRateLimiterConfig returns 60 calls per minute, spread evenly.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxCalls: 60,
		Period:   time.Minute,
		Spread:   true,
	}
}

// Validate reports configuration errors.
func (c RateLimiterConfig) Validate() error {
	if c.MaxCalls <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxCalls, c.MaxCalls)
	}
	if c.Period <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidPeriod, c.Period)
	}
	return nil
}

// Interval is the minimum spacing between starts in spread mode.
func (c RateLimiterConfig) Interval() time.Duration {
	if c.MaxCalls <= 0 {
		return 0
	}
	return c.Period / time.Duration(c.MaxCalls)
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithCallMeta names the throttled call site in telemetry.
func WithCallMeta(meta observe.CallMeta) Option {
	return func(rl *RateLimiter) { rl.meta = meta }
}

// WithMetrics reports throttle delays to m.
func WithMetrics(m observe.Metrics) Option {
	return func(rl *RateLimiter) {
		if m != nil {
			rl.metrics = m
		}
	}
}

// WithLogger logs throttle delays at debug level.
func WithLogger(l observe.Logger) Option {
	return func(rl *RateLimiter) {
		if l != nil {
			rl.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(rl *RateLimiter) {
		if now != nil {
			rl.now = now
		}
	}
}

// RateLimiter delays call starts so that no more than MaxCalls start in
// any rolling Period.
//
// Contract:
//   - Concurrency: safe for concurrent use. Computing a caller's delay and
//     recording its start happen in one critical section.
//   - Admission: calls are never rejected; every reservation eventually runs.
//   - Accounting: a reserved start counts even if the call fails or the
//     caller abandons the wait.
type RateLimiter struct {
	config RateLimiterConfig

	mu     sync.Mutex
	starts []time.Time // ring of the last MaxCalls start times
	next   int
	filled int
	even   *rate.Limiter // spread mode only

	now     func() time.Time
	meta    observe.CallMeta
	metrics observe.Metrics
	logger  observe.Logger
}

// NewRateLimiter creates a rate limiter. Non-positive MaxCalls or Period
// are configuration errors.
func NewRateLimiter(config RateLimiterConfig, opts ...Option) (*RateLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rl := &RateLimiter{
		config:  config,
		starts:  make([]time.Time, config.MaxCalls),
		now:     time.Now,
		meta:    observe.CallMeta{Name: "ratelimit"},
		metrics: observe.NopMetrics(),
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(rl)
	}
	rl.logger = rl.logger.WithCall(rl.meta)

	if config.Spread {
		rl.even = rate.NewLimiter(rate.Every(config.Interval()), 1)
	}
	return rl, nil
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

// Reserve claims the next start slot and returns how long the caller must
// wait before starting.
func (rl *RateLimiter) Reserve() time.Duration {
	return rl.reserveAt(rl.now())
}

func (rl *RateLimiter) reserveAt(now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	start := now
	if rl.even != nil {
		start = now.Add(rl.even.ReserveN(now, 1).DelayFrom(now))
		// rate.Limiter counts fractional tokens and can come up 1ns short.
		if rl.filled > 0 {
			prev := rl.starts[(rl.next+len(rl.starts)-1)%len(rl.starts)]
			if earliest := prev.Add(rl.config.Interval()); earliest.After(start) {
				start = earliest
			}
		}
	}

	// Sliding window, both modes: the slot frees once the start MaxCalls
	// back leaves [now-Period, now).
	if rl.filled == len(rl.starts) {
		if free := rl.starts[rl.next].Add(rl.config.Period); free.After(start) {
			start = free
		}
	}

	rl.starts[rl.next] = start
	rl.next = (rl.next + 1) % len(rl.starts)
	if rl.filled < len(rl.starts) {
		rl.filled++
	}

	return start.Sub(now)
}

// Wait blocks until the caller may start. If ctx ends first, ctx.Err() is
// returned and the reserved slot stays consumed.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	delay := rl.Reserve()
	rl.metrics.RecordThrottle(ctx, rl.meta, delay)
	if delay <= 0 {
		return nil
	}
	rl.logger.Debug(ctx, "throttling call", observe.F("wait_ms", delay.Milliseconds()))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute waits for a slot and runs op. Errors from op pass through unchanged.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// InWindow returns how many recorded starts fall within the trailing Period,
// including starts scheduled for the future.
func (rl *RateLimiter) InWindow() int {
	now := rl.now()
	cutoff := now.Add(-rl.config.Period)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for i := 0; i < rl.filled; i++ {
		if rl.starts[i].After(cutoff) {
			n++
		}
	}
	return n
}

// Reset forgets all recorded starts.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	clear(rl.starts)
	rl.next = 0
	rl.filled = 0
	if rl.config.Spread {
		rl.even = rate.NewLimiter(rate.Every(rl.config.Interval()), 1)
	}
}

// Wrap returns c throttled by rl. c's results and failures pass through
// unchanged; a failed call still counts toward the limit.
func Wrap[In, Out any](rl *RateLimiter, c call.Callable[In, Out]) call.Callable[In, Out] {
	return call.Func[In, Out](func(ctx context.Context, in In) (Out, error) {
		if err := rl.Wait(ctx); err != nil {
			var zero Out
			return zero, err
		}
		return c.Call(ctx, in)
	})
}

// Limiting adapts Wrap for use with call.Chain.
func Limiting[In, Out any](rl *RateLimiter) call.Wrapper[In, Out] {
	return func(c call.Callable[In, Out]) call.Callable[In, Out] {
		return Wrap(rl, c)
	}
}

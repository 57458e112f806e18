package health

import (
	"context"
	"fmt"
	"time"
)

// Status is the health of one component. Larger values are worse.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{
	StatusHealthy:   "healthy",
	StatusDegraded:  "degraded",
	StatusUnhealthy: "unhealthy",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Result is the outcome of one check.
type Result struct {
	Status   Status
	Message  string
	Details  map[string]any
	Duration time.Duration
	Err      error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is a named diagnostic.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type checkerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewChecker adapts fn to a Checker.
func NewChecker(name string, fn func(context.Context) Result) Checker {
	return &checkerFunc{name: name, fn: fn}
}

func (f *checkerFunc) Name() string                     { return f.name }
func (f *checkerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// PingChecker reports Unhealthy when ping fails and Degraded when it takes
// longer than slow. A zero slow threshold disables the latency check.
func PingChecker(name string, ping func(context.Context) error, slow time.Duration) Checker {
	return NewChecker(name, func(ctx context.Context) Result {
		start := time.Now()
		if err := ping(ctx); err != nil {
			return Unhealthy("unreachable", err)
		}
		latency := time.Since(start)
		details := map[string]any{"latency_ms": latency.Milliseconds()}
		if slow > 0 && latency > slow {
			return Degraded(fmt.Sprintf("slow response (%s)", latency.Round(time.Millisecond))).WithDetails(details)
		}
		return Healthy("reachable").WithDetails(details)
	})
}

// UsageChecker reports Degraded once used/capacity reaches warn (0..1).
func UsageChecker(name string, usage func() (used, capacity int), warn float64) Checker {
	return NewChecker(name, func(context.Context) Result {
		used, capacity := usage()
		details := map[string]any{"used": used, "capacity": capacity}
		msg := fmt.Sprintf("%d/%d in use", used, capacity)
		if capacity > 0 && float64(used)/float64(capacity) >= warn {
			return Degraded(msg).WithDetails(details)
		}
		return Healthy(msg).WithDetails(details)
	})
}

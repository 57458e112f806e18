package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jikan4/jikan4/call"
)

// DefaultTimeout bounds CheckAll when no timeout is given.
const DefaultTimeout = 10 * time.Second

// Report pairs a checker name with its result.
type Report struct {
	Name string
	Result
}

// Aggregator runs a set of checkers under one deadline.
//
// Contract:
//   - Concurrency: safe for concurrent use; checks run in parallel.
//   - Ordering: reports follow registration order.
//   - Failure: a check that times out or panics is reported Unhealthy.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an aggregator. Non-positive timeouts use DefaultTimeout.
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{timeout: timeout}
}

// Register adds a checker. A checker with an existing name replaces it in place.
func (a *Aggregator) Register(c Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, existing := range a.checkers {
		if existing.Name() == c.Name() {
			a.checkers[i] = c
			return
		}
	}
	a.checkers = append(a.checkers, c)
}

// Names returns the registered checker names in order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

// CheckAll runs every checker concurrently and returns their reports.
func (a *Aggregator) CheckAll(ctx context.Context) []Report {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	begin := time.Now()
	futures := make([]*call.Future[Result], len(checkers))
	for i, c := range checkers {
		futures[i] = call.Go[Checker, Result](ctx, call.Func[Checker, Result](runCheck), c)
	}

	reports := make([]Report, len(checkers))
	for i, f := range futures {
		res, err := f.Await(ctx)
		if err != nil {
			res = Unhealthy("check timed out", ErrCheckTimeout)
			res.Duration = time.Since(begin)
		}
		reports[i] = Report{Name: checkers[i].Name(), Result: res}
	}
	return reports
}

// Overall is Unhealthy if any report is, else Degraded if any report is,
// else Healthy. No reports is Healthy.
func Overall(reports []Report) Status {
	overall := StatusHealthy
	for _, r := range reports {
		if r.Status > overall {
			overall = r.Status
		}
	}
	return overall
}

func runCheck(ctx context.Context, c Checker) (res Result, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = Unhealthy(fmt.Sprintf("panic: %v", p), ErrCheckPanicked)
		}
		res.Duration = time.Since(start)
	}()
	return c.Check(ctx), nil
}

package call

import "context"

// Callable is a single-input, single-output operation that may fail.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Call should honor cancellation where it blocks.
// - Errors: failures are returned unchanged to the caller.
type Callable[In, Out any] interface {
	Call(ctx context.Context, in In) (Out, error)
}

// Func adapts an ordinary function to a Callable.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Call invokes f.
func (f Func[In, Out]) Call(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// Wrapper decorates a Callable.
type Wrapper[In, Out any] func(Callable[In, Out]) Callable[In, Out]

// Chain applies wrappers so that the first one is outermost.
//
//	Chain(inner, observe, limit) == observe(limit(inner))
func Chain[In, Out any](inner Callable[In, Out], wrappers ...Wrapper[In, Out]) Callable[In, Out] {
	c := inner
	for i := len(wrappers) - 1; i >= 0; i-- {
		if wrappers[i] == nil {
			continue
		}
		c = wrappers[i](c)
	}
	return c
}

// Ensure Func implements Callable
var _ Callable[int, int] = Func[int, int](nil)

package call

import "context"

// Future is the pending result of a call started with Go.
type Future[Out any] struct {
	done chan struct{}
	val  Out
	err  error
}

// Go starts c.Call(ctx, in) on a new goroutine and returns immediately.
// The call runs to completion even if nobody awaits it.
func Go[In, Out any](ctx context.Context, c Callable[In, Out], in In) *Future[Out] {
	f := &Future[Out]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = c.Call(ctx, in)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[Out]) Done() <-chan struct{} {
	return f.done
}

// Await suspends the calling goroutine until the result is available or ctx
// is done. Abandoning the wait does not cancel the underlying call.
func (f *Future[Out]) Await(ctx context.Context) (Out, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero Out
		return zero, ctx.Err()
	}
}

// AwaitAll waits for every future in order and returns the results. The
// first error encountered is returned alongside the results gathered so far.
func AwaitAll[Out any](ctx context.Context, futures ...*Future[Out]) ([]Out, error) {
	out := make([]Out, 0, len(futures))
	for _, f := range futures {
		v, err := f.Await(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Package call defines the invocation abstraction shared by the cache and
// resilience interceptors.
//
// A Callable takes a context and one input value and returns one output and
// an error. Interceptors such as cache.Memoizer and resilience.RateLimiter
// accept a Callable and return a Callable with the same signature, so they
// compose by wrapping one inside another.
//
// # Execution styles
//
// Call blocks the calling goroutine until the result is available. Go starts
// the call on its own goroutine and returns a Future; awaiting the Future
// suspends only the awaiting goroutine, leaving others free to run. Both
// styles execute the same interceptor code.
//
//	fetch := call.Func[int, Anime](client.fetchAnime)
//	f := call.Go(ctx, fetch, 1)
//	anime, err := f.Await(ctx)
package call

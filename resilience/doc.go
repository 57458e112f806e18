// Package resilience throttles intercepted calls.
//
// RateLimiter admits at most MaxCalls call starts in any rolling Period.
// With Spread enabled, starts are spaced at least Period/MaxCalls apart, so
// load arrives evenly instead of as a burst followed by a stall. Without it,
// a sliding window admits calls immediately until MaxCalls have started
// within the trailing Period.
//
// Calls are never rejected: a throttled call waits for its slot. Waiting
// blocks the calling goroutine only; callers started with call.Go wait
// independently of each other.
//
//	rl, err := resilience.NewRateLimiter(resilience.DefaultRateLimiterConfig())
//	if err != nil {
//	    return err
//	}
//	request := resilience.Wrap(rl, httpRequest)
//	resp, err := request.Call(ctx, req)
package resilience

// Package cache provides bounded memoization for intercepted calls.
//
// It has three parts:
//
//   - Codec canonicalizes call arguments into a comparable Key, so calls
//     whose arguments are structurally equal share an entry.
//   - LRU is a bounded Key→value store. Put marks an entry most recent;
//     Get is a pure lookup and does not protect an entry from eviction.
//   - Memoizer wraps a call.Callable and serves repeated calls from an LRU.
//     Failed calls are never cached.
//
// Concurrent misses on the same key both run the inner call unless the
// memoizer is built WithSingleflight.
package cache

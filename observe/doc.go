// Package observe provides observability primitives for intercepted calls.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The cache and resilience interceptors report hits,
// evictions and throttle waits through Metrics and Logger; Wrap adds a span,
// a duration histogram and a log line around any call.Callable.
package observe

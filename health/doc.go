// Package health runs diagnostic checks and summarizes their status.
//
// A Checker reports Healthy, Degraded or Unhealthy. PingChecker wraps a
// reachability probe; UsageChecker flags a bounded resource that is close to
// full. Aggregator runs registered checkers concurrently under one deadline
// and reports results in registration order.
//
//	agg := health.NewAggregator(5 * time.Second)
//	agg.Register(health.PingChecker("api", client.Ping, time.Second))
//	agg.Register(health.UsageChecker("cache", cacheUsage, 0.9))
//	reports := agg.CheckAll(ctx)
//	if health.Overall(reports) == health.StatusUnhealthy {
//	    ...
//	}
package health

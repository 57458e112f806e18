package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jikan4/jikan4/health"
	"github.com/jikan4/jikan4/observe"
)

const (
	pingSlow   = time.Second
	usageWarn  = 0.9
	checkLimit = 15 * time.Second
)

var errUnhealthy = errors.New("cli: one or more checks are unhealthy")

func (a *app) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check API reachability, cache and rate limiter usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports := a.checks().CheckAll(cmd.Context())
			if err := a.render().reports(reports); err != nil {
				return err
			}

			overall := health.Overall(reports)
			a.logger.Debug(cmd.Context(), "doctor finished", observe.F("status", overall.String()))
			if overall == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
}

func (a *app) checks() *health.Aggregator {
	client := a.client
	agg := health.NewAggregator(checkLimit)
	agg.Register(health.PingChecker("api", client.Ping, pingSlow))
	agg.Register(health.UsageChecker("cache", func() (int, int) {
		return client.CacheLen(), client.CacheCap()
	}, usageWarn))
	agg.Register(health.UsageChecker("ratelimit", func() (int, int) {
		return client.Limiter().InWindow(), client.Config().RateLimit.MaxCalls
	}, usageWarn))
	return agg
}

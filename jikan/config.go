package jikan

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jikan4/jikan4/cache"
	"github.com/jikan4/jikan4/resilience"
)

// DefaultBaseURL is the public Jikan v4 endpoint.
const DefaultBaseURL = "https://api.jikan.moe/v4"

// Config configures a Client.
type Config struct {
	// BaseURL is the API root. A trailing slash is ignored.
	// Default: https://api.jikan.moe/v4
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds each HTTP round trip. Zero disables the timeout.
	// Default: 10s
	Timeout time.Duration `mapstructure:"timeout"`

	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent"`

	// CacheCapacity is the number of responses kept per client.
	// Default: 128
	CacheCapacity int `mapstructure:"cache_capacity"`

	// RateLimit throttles requests that miss the cache.
	// Default: 60 calls per minute, spread evenly.
	RateLimit resilience.RateLimiterConfig `mapstructure:"rate_limit"`
}

// DefaultConfig returns the configuration used by the public API client.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       10 * time.Second,
		UserAgent:     "jikan4-go",
		CacheCapacity: cache.DefaultCapacity,
		RateLimit:     resilience.DefaultRateLimiterConfig(),
	}
}

// Validate reports configuration errors and normalizes BaseURL.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTimeout, c.Timeout)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheCapacity, c.CacheCapacity)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("jikan: rate limit: %w", err)
	}
	return nil
}

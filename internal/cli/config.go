package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jikan4/jikan4/jikan"
	"github.com/jikan4/jikan4/observe"
)

const (
	envPrefix   = "JIKAN"
	serviceName = "jikan-cli"

	outputTable = "table"
	outputJSON  = "json"
)

// ErrInvalidOutput is returned for an unknown --output format.
var ErrInvalidOutput = errors.New("cli: output must be table or json")

// Config is the CLI configuration: client settings at the top level plus
// output and telemetry.
type Config struct {
	jikan.Config `mapstructure:",squash"`

	LogLevel  string         `mapstructure:"log_level"`
	Output    string         `mapstructure:"output"`
	Telemetry observe.Config `mapstructure:"telemetry"`
}

// DefaultConfig returns the CLI defaults.
func DefaultConfig() Config {
	telemetry := observe.DefaultConfig(serviceName)
	telemetry.Version = version
	telemetry.Logging.Level = "warn"

	return Config{
		Config:    jikan.DefaultConfig(),
		LogLevel:  telemetry.Logging.Level,
		Output:    outputTable,
		Telemetry: telemetry,
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if _, err := observe.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Output {
	case outputTable, outputJSON:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidOutput, c.Output)
	}

	// --log-level drives the observer's logger.
	c.Telemetry.Logging = observe.LoggingConfig{Enabled: true, Level: c.LogLevel}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = serviceName
	}
	return c.Telemetry.Validate()
}

// newViper returns a viper instance preloaded with defaults and the
// JIKAN_ environment mapping (rate_limit.max_calls -> JIKAN_RATE_LIMIT_MAX_CALLS).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("cache_capacity", d.CacheCapacity)
	v.SetDefault("rate_limit.max_calls", d.RateLimit.MaxCalls)
	v.SetDefault("rate_limit.period", d.RateLimit.Period)
	v.SetDefault("rate_limit.spread", d.RateLimit.Spread)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("output", d.Output)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.version", d.Telemetry.Version)
	v.SetDefault("telemetry.tracing.enabled", d.Telemetry.Tracing.Enabled)
	v.SetDefault("telemetry.tracing.exporter", d.Telemetry.Tracing.Exporter)
	v.SetDefault("telemetry.tracing.sample_pct", d.Telemetry.Tracing.SamplePct)
	v.SetDefault("telemetry.metrics.enabled", d.Telemetry.Metrics.Enabled)
	v.SetDefault("telemetry.metrics.exporter", d.Telemetry.Metrics.Exporter)
	v.SetDefault("telemetry.logging.enabled", d.Telemetry.Logging.Enabled)
	v.SetDefault("telemetry.logging.level", d.Telemetry.Logging.Level)
	return v
}

// loadConfig reads the optional config file and decodes the merged
// defaults, file, environment and bound flags.
func loadConfig(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToFloat64HookFunc(),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

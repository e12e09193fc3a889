// Package config loads the settings of the example programs with viper.
//
// Values come from, highest precedence first: PUBSERVE_* environment
// variables, an optional YAML file, and the defaults below.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/erlorenz/pubserve/observer"
)

// EnvPrefix is prepended to every environment variable, e.g.
// PUBSERVE_ASYNC_DELIVERY.
const EnvPrefix = "PUBSERVE"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid configuration")

// Config selects the publisher variant and the ambient settings.
type Config struct {
	// Name labels the publisher in logs and metrics.
	Name string `mapstructure:"name"`
	// ThreadSafe guards the publisher registry with a mutex.
	ThreadSafe bool `mapstructure:"thread_safe"`
	// AsyncDelivery selects the AsyncPublisher.
	AsyncDelivery bool `mapstructure:"async_delivery"`
	// ConcurrentFanOut notifies subscribers concurrently; requires AsyncDelivery.
	ConcurrentFanOut bool `mapstructure:"concurrent_fan_out"`
	// MaxConcurrency bounds concurrent notifications, 0 means unbounded.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// RecoverPanics isolates every notification in a recover boundary.
	RecoverPanics bool `mapstructure:"recover_panics"`

	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`
}

var defaults = map[string]any{
	"name":               "events",
	"thread_safe":        true,
	"async_delivery":     false,
	"concurrent_fan_out": false,
	"max_concurrency":    0,
	"recover_panics":     true,
	"log_level":          "info",
	"http_addr":          ":8080",
}

// Load reads the configuration. path may be empty, in which case only the
// environment and the defaults are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports inconsistent settings.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("%w: max_concurrency must not be negative, got %d", ErrInvalid, c.MaxConcurrency)
	}
	if c.ConcurrentFanOut && !c.AsyncDelivery {
		return fmt.Errorf("%w: concurrent_fan_out requires async_delivery", ErrInvalid)
	}
	if c.MaxConcurrency > 0 && !c.ConcurrentFanOut {
		return fmt.Errorf("%w: max_concurrency requires concurrent_fan_out", ErrInvalid)
	}
	return nil
}

// PublisherOptions turns the configuration into publisher options.
// m may be nil.
func (c *Config) PublisherOptions(logger *zap.Logger, m observer.Metrics) []observer.Option {
	opts := []observer.Option{
		observer.WithName(c.Name),
		observer.WithLogger(logger),
	}
	if m != nil {
		opts = append(opts, observer.WithMetrics(m))
	}
	if c.ThreadSafe {
		opts = append(opts, observer.WithThreadSafety())
	}
	if c.RecoverPanics {
		opts = append(opts, observer.WithPanicRecovery())
	}
	if c.ConcurrentFanOut {
		opts = append(opts, observer.WithConcurrentFanOut(c.MaxConcurrency))
	}
	return opts
}

package ratelimit

import (
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
)

// Config represents rate limiting configuration
type Config struct {
	// GlobalRate applies per client IP to every route not listed in RouteRates.
	GlobalRate RateConfig `yaml:"global_rate"`

	// RouteRates overrides GlobalRate for route prefixes.
	RouteRates map[string]RateConfig `yaml:"route_rates"`

	Prefix   string `yaml:"prefix"`
	MaxRetry int    `yaml:"max_retry"`

	DisableHeaders bool     `yaml:"disable_headers"`
	ExcludedPaths  []string `yaml:"excluded_paths"`
}

// RateConfig represents a single rate limit configuration
type RateConfig struct {
	Period   time.Duration `yaml:"period"`
	Limit    int64         `yaml:"limit"`
	Disabled bool          `yaml:"disabled,omitempty"`
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		GlobalRate: RateConfig{
			Limit:  100,
			Period: 1 * time.Minute,
		},
		RouteRates: map[string]RateConfig{
			// generation runs on the shared worker pool
			"/api/v0/speak": {
				Limit:  30,
				Period: 1 * time.Minute,
			},
			"/api/v0/export": {
				Limit:  5,
				Period: 1 * time.Minute,
			},
		},
		Prefix:   "senvr:ratelimit:",
		MaxRetry: 3,
		ExcludedPaths: []string{
			"/health",
			"/metrics",
			"/api/v0/health",
		},
	}
}

// ToLimiterRate converts RateConfig to limiter.Rate
func (rc RateConfig) ToLimiterRate() limiter.Rate {
	return limiter.Rate{
		Period: rc.Period,
		Limit:  rc.Limit,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GlobalRate.Limit <= 0 {
		return fmt.Errorf("global rate limit must be positive")
	}
	if c.GlobalRate.Period <= 0 {
		return fmt.Errorf("global rate period must be positive")
	}
	for route, rate := range c.RouteRates {
		if rate.Disabled {
			continue
		}
		if rate.Limit <= 0 {
			return fmt.Errorf("route rate limit for %s must be positive", route)
		}
		if rate.Period <= 0 {
			return fmt.Errorf("route rate period for %s must be positive", route)
		}
	}
	return nil
}

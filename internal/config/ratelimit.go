package config

import (
	"errors"
	"time"
)

// Rate limit tracker defaults.
const (
	defaultRateLimitWindow    = time.Minute
	defaultRateLimitThreshold = 5
	defaultInitialBackoff     = 5 * time.Second
	defaultMaxBackoff         = 150 * time.Second
	defaultRequestsPerSec     = 4.0
	defaultBurst              = 2
)

// RateLimitConfig holds adaptive backoff and client ceiling settings.
type RateLimitConfig struct {
	// Window is the sliding window over which throttle signals count.
	Window time.Duration `yaml:"window" mapstructure:"window"`
	// Threshold is the signal count at which backoff jumps straight to
	// MaxBackoff.
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
	// InitialBackoff seeds the exponential backoff for the first signal.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	// MaxBackoff caps the backoff sleep.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	// RequestsPerSecond is the hard client-side request ceiling applied
	// beneath the adaptive tracker.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	// Burst is the ceiling's burst allowance.
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// NewRateLimitConfig returns rate limit defaults.
func NewRateLimitConfig() *RateLimitConfig {
	cfg := &RateLimitConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *RateLimitConfig) applyDefaults() {
	if c.Window == 0 {
		c.Window = defaultRateLimitWindow
	}
	if c.Threshold == 0 {
		c.Threshold = defaultRateLimitThreshold
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = defaultRequestsPerSec
	}
	if c.Burst == 0 {
		c.Burst = defaultBurst
	}
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	if c.Window <= 0 {
		return errors.New("window must be positive")
	}
	if c.Threshold <= 0 {
		return errors.New("threshold must be positive")
	}
	if c.InitialBackoff <= 0 {
		return errors.New("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return errors.New("max_backoff must be at least initial_backoff")
	}
	if c.RequestsPerSecond <= 0 {
		return errors.New("requests_per_second must be positive")
	}
	return nil
}

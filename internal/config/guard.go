package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvGuardRatePerSecond = "TRIBUNAL_GUARD_RATE_PER_SECOND"
	EnvGuardBurst         = "TRIBUNAL_GUARD_BURST"
	EnvGuardFailureRatio  = "TRIBUNAL_GUARD_FAILURE_RATIO"
	EnvGuardMinRequests   = "TRIBUNAL_GUARD_MIN_REQUESTS"
	EnvGuardOpenTimeout   = "TRIBUNAL_GUARD_OPEN_TIMEOUT"
)

// GuardConfig bounds request pressure on each tribunal portal: a token
// bucket limiter and a circuit breaker shared by every session on it.
type GuardConfig struct {
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
	FailureRatio  float64 `toml:"failure_ratio"`
	MinRequests   uint32  `toml:"min_requests"`
	HalfOpenMax   uint32  `toml:"half_open_max"`
	Interval      string  `toml:"interval"`
	OpenTimeout   string  `toml:"open_timeout"`
}

// IntervalDuration returns Interval as a time.Duration.
func (c *GuardConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// OpenTimeoutDuration returns OpenTimeout as a time.Duration.
func (c *GuardConfig) OpenTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.OpenTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *GuardConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *GuardConfig) Merge(overlay *GuardConfig) {
	if overlay.RatePerSecond != 0 {
		c.RatePerSecond = overlay.RatePerSecond
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
	if overlay.FailureRatio != 0 {
		c.FailureRatio = overlay.FailureRatio
	}
	if overlay.MinRequests != 0 {
		c.MinRequests = overlay.MinRequests
	}
	if overlay.HalfOpenMax != 0 {
		c.HalfOpenMax = overlay.HalfOpenMax
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.OpenTimeout != "" {
		c.OpenTimeout = overlay.OpenTimeout
	}
}

func (c *GuardConfig) loadDefaults() {
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 2
	}
	if c.Burst <= 0 {
		c.Burst = 4
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.6
	}
	if c.MinRequests == 0 {
		c.MinRequests = 10
	}
	if c.HalfOpenMax == 0 {
		c.HalfOpenMax = 1
	}
	if c.Interval == "" {
		c.Interval = "1m"
	}
	if c.OpenTimeout == "" {
		c.OpenTimeout = "2m"
	}
}

func (c *GuardConfig) loadEnv() {
	if v := os.Getenv(EnvGuardRatePerSecond); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv(EnvGuardBurst); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Burst = n
		}
	}
	if v := os.Getenv(EnvGuardFailureRatio); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.FailureRatio = f
		}
	}
	if v := os.Getenv(EnvGuardMinRequests); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.MinRequests = uint32(n)
		}
	}
	if v := os.Getenv(EnvGuardOpenTimeout); v != "" {
		c.OpenTimeout = v
	}
}

func (c *GuardConfig) validate() error {
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		return fmt.Errorf("failure_ratio must be in (0, 1]: %v", c.FailureRatio)
	}
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if _, err := time.ParseDuration(c.OpenTimeout); err != nil {
		return fmt.Errorf("invalid open_timeout: %w", err)
	}
	return nil
}

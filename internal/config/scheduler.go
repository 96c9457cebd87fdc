package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvSchedulerEnabled       = "TRIBUNAL_SCHEDULER_ENABLED"
	EnvSchedulerWorkers       = "TRIBUNAL_SCHEDULER_WORKERS"
	EnvSchedulerTickInterval  = "TRIBUNAL_SCHEDULER_TICK_INTERVAL"
	EnvSchedulerRunTimeout    = "TRIBUNAL_SCHEDULER_RUN_TIMEOUT"
	EnvSchedulerLoginAttempts = "TRIBUNAL_SCHEDULER_LOGIN_ATTEMPTS"
	EnvSchedulerLoginBackoff  = "TRIBUNAL_SCHEDULER_LOGIN_BACKOFF"
)

// SchedulerConfig controls the periodic capture driver and its worker bound.
type SchedulerConfig struct {
	Enabled       *bool  `toml:"enabled"`
	Workers       int    `toml:"workers"`
	TickInterval  string `toml:"tick_interval"`
	RunTimeout    string `toml:"run_timeout"`
	LoginAttempts int    `toml:"login_attempts"`
	LoginBackoff  string `toml:"login_backoff"`
}

// IsEnabled reports whether the periodic driver should start. Defaults to true.
func (c *SchedulerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TickIntervalDuration returns TickInterval as a time.Duration.
func (c *SchedulerConfig) TickIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.TickInterval)
	return d
}

// RunTimeoutDuration returns RunTimeout as a time.Duration.
func (c *SchedulerConfig) RunTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RunTimeout)
	return d
}

// LoginBackoffDuration returns LoginBackoff as a time.Duration.
func (c *SchedulerConfig) LoginBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.LoginBackoff)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SchedulerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *SchedulerConfig) Merge(overlay *SchedulerConfig) {
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.TickInterval != "" {
		c.TickInterval = overlay.TickInterval
	}
	if overlay.RunTimeout != "" {
		c.RunTimeout = overlay.RunTimeout
	}
	if overlay.LoginAttempts != 0 {
		c.LoginAttempts = overlay.LoginAttempts
	}
	if overlay.LoginBackoff != "" {
		c.LoginBackoff = overlay.LoginBackoff
	}
}

func (c *SchedulerConfig) loadDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.TickInterval == "" {
		c.TickInterval = "1m"
	}
	if c.RunTimeout == "" {
		c.RunTimeout = "30m"
	}
	if c.LoginAttempts <= 0 {
		c.LoginAttempts = 3
	}
	if c.LoginBackoff == "" {
		c.LoginBackoff = "5s"
	}
}

func (c *SchedulerConfig) loadEnv() {
	if v := os.Getenv(EnvSchedulerEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = &b
		}
	}
	if v := os.Getenv(EnvSchedulerWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvSchedulerTickInterval); v != "" {
		c.TickInterval = v
	}
	if v := os.Getenv(EnvSchedulerRunTimeout); v != "" {
		c.RunTimeout = v
	}
	if v := os.Getenv(EnvSchedulerLoginAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LoginAttempts = n
		}
	}
	if v := os.Getenv(EnvSchedulerLoginBackoff); v != "" {
		c.LoginBackoff = v
	}
}

func (c *SchedulerConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.LoginAttempts < 1 {
		return fmt.Errorf("login_attempts must be positive")
	}
	for name, v := range map[string]string{
		"tick_interval": c.TickInterval,
		"run_timeout":   c.RunTimeout,
		"login_backoff": c.LoginBackoff,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

package retry

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds retry policy parameters.
type Config struct {
	MaxAttempts int    `toml:"max_attempts"`
	BaseDelay   string `toml:"base_delay"`
	MaxDelay    string `toml:"max_delay"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxAttempts string
	BaseDelay   string
	MaxDelay    string
}

// BaseDelayDuration returns BaseDelay as a time.Duration.
func (c *Config) BaseDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.BaseDelay)
	return d
}

// MaxDelayDuration returns MaxDelay as a time.Duration.
func (c *Config) MaxDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxDelay)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BaseDelay != "" {
		c.BaseDelay = overlay.BaseDelay
	}
	if overlay.MaxDelay != "" {
		c.MaxDelay = overlay.MaxDelay
	}
}

func (c *Config) loadDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay == "" {
		c.BaseDelay = "500ms"
	}
	if c.MaxDelay == "" {
		c.MaxDelay = "10s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxAttempts != "" {
		if v := os.Getenv(env.MaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxAttempts = n
			}
		}
	}
	if env.BaseDelay != "" {
		if v := os.Getenv(env.BaseDelay); v != "" {
			c.BaseDelay = v
		}
	}
	if env.MaxDelay != "" {
		if v := os.Getenv(env.MaxDelay); v != "" {
			c.MaxDelay = v
		}
	}
}

func (c *Config) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	base, err := time.ParseDuration(c.BaseDelay)
	if err != nil {
		return fmt.Errorf("invalid base_delay: %w", err)
	}
	maxDelay, err := time.ParseDuration(c.MaxDelay)
	if err != nil {
		return fmt.Errorf("invalid max_delay: %w", err)
	}
	if base > maxDelay {
		return fmt.Errorf("base_delay cannot exceed max_delay")
	}
	return nil
}

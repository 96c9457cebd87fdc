package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvBrowserControlURL     = "TRIBUNAL_BROWSER_CONTROL_URL"
	EnvBrowserHeadless       = "TRIBUNAL_BROWSER_HEADLESS"
	EnvBrowserLoginTimeout   = "TRIBUNAL_BROWSER_LOGIN_TIMEOUT"
	EnvBrowserRequestTimeout = "TRIBUNAL_BROWSER_REQUEST_TIMEOUT"
	EnvBrowserUserAgent      = "TRIBUNAL_BROWSER_USER_AGENT"
)

// SelectorConfig names the CSS selectors that drive a portal login form.
// Portals change their markup, so selectors live in configuration.
type SelectorConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Submit   string `toml:"submit"`
	LoggedIn string `toml:"logged_in"`
	Error    string `toml:"error"`
}

// BrowserConfig controls the headless browser used for portal logins.
type BrowserConfig struct {
	ControlURL     string         `toml:"control_url"`
	Headless       *bool          `toml:"headless"`
	LoginTimeout   string         `toml:"login_timeout"`
	RequestTimeout string         `toml:"request_timeout"`
	UserAgent      string         `toml:"user_agent"`
	Selectors      SelectorConfig `toml:"selectors"`
}

// IsHeadless reports whether a locally launched browser runs headless. Defaults to true.
func (c *BrowserConfig) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// LoginTimeoutDuration returns LoginTimeout as a time.Duration.
func (c *BrowserConfig) LoginTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.LoginTimeout)
	return d
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *BrowserConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *BrowserConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *BrowserConfig) Merge(overlay *BrowserConfig) {
	if overlay.ControlURL != "" {
		c.ControlURL = overlay.ControlURL
	}
	if overlay.Headless != nil {
		c.Headless = overlay.Headless
	}
	if overlay.LoginTimeout != "" {
		c.LoginTimeout = overlay.LoginTimeout
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.UserAgent != "" {
		c.UserAgent = overlay.UserAgent
	}
	s, o := &c.Selectors, &overlay.Selectors
	if o.Username != "" {
		s.Username = o.Username
	}
	if o.Password != "" {
		s.Password = o.Password
	}
	if o.Submit != "" {
		s.Submit = o.Submit
	}
	if o.LoggedIn != "" {
		s.LoggedIn = o.LoggedIn
	}
	if o.Error != "" {
		s.Error = o.Error
	}
}

func (c *BrowserConfig) loadDefaults() {
	if c.LoginTimeout == "" {
		c.LoginTimeout = "90s"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "60s"
	}
	if c.Selectors.Username == "" {
		c.Selectors.Username = "#username"
	}
	if c.Selectors.Password == "" {
		c.Selectors.Password = "#password"
	}
	if c.Selectors.Submit == "" {
		c.Selectors.Submit = "button[type=submit]"
	}
}

func (c *BrowserConfig) loadEnv() {
	if v := os.Getenv(EnvBrowserControlURL); v != "" {
		c.ControlURL = v
	}
	if v := os.Getenv(EnvBrowserHeadless); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Headless = &b
		}
	}
	if v := os.Getenv(EnvBrowserLoginTimeout); v != "" {
		c.LoginTimeout = v
	}
	if v := os.Getenv(EnvBrowserRequestTimeout); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv(EnvBrowserUserAgent); v != "" {
		c.UserAgent = v
	}
}

func (c *BrowserConfig) validate() error {
	if _, err := time.ParseDuration(c.LoginTimeout); err != nil {
		return fmt.Errorf("invalid login_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	return nil
}

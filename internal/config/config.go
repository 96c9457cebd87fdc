// Package config loads the service configuration from TOML files and
// TRIBUNAL_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/tribunal/pkg/cache"
	"github.com/JaimeStill/tribunal/pkg/database"
	"github.com/JaimeStill/tribunal/pkg/docstore"
	"github.com/JaimeStill/tribunal/pkg/retry"
	"github.com/JaimeStill/tribunal/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvTribunalEnv             = "TRIBUNAL_ENV"
	EnvTribunalShutdownTimeout = "TRIBUNAL_SHUTDOWN_TIMEOUT"
	EnvTribunalVersion         = "TRIBUNAL_VERSION"
	EnvTribunalLogLevel        = "TRIBUNAL_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Host:            "TRIBUNAL_DB_HOST",
	Port:            "TRIBUNAL_DB_PORT",
	Name:            "TRIBUNAL_DB_NAME",
	User:            "TRIBUNAL_DB_USER",
	Password:        "TRIBUNAL_DB_PASSWORD",
	SSLMode:         "TRIBUNAL_DB_SSL_MODE",
	MaxOpenConns:    "TRIBUNAL_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "TRIBUNAL_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "TRIBUNAL_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "TRIBUNAL_DB_CONN_TIMEOUT",
	AppName:         "TRIBUNAL_DB_APP_NAME",
}

var docstoreEnv = &docstore.Env{
	URI:         "TRIBUNAL_MONGO_URI",
	Database:    "TRIBUNAL_MONGO_DATABASE",
	ConnTimeout: "TRIBUNAL_MONGO_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "TRIBUNAL_STORAGE_CONTAINER_NAME",
	ConnectionString: "TRIBUNAL_STORAGE_CONNECTION_STRING",
	MaxDocumentSize:  "TRIBUNAL_STORAGE_MAX_DOCUMENT_SIZE",
}

var cacheEnv = &cache.Env{
	Enabled:   "TRIBUNAL_CACHE_ENABLED",
	Addr:      "TRIBUNAL_CACHE_ADDR",
	Password:  "TRIBUNAL_CACHE_PASSWORD",
	DB:        "TRIBUNAL_CACHE_DB",
	Prefix:    "TRIBUNAL_CACHE_PREFIX",
	ScanCount: "TRIBUNAL_CACHE_SCAN_COUNT",
	Timeout:   "TRIBUNAL_CACHE_TIMEOUT",
}

var retryEnv = &retry.Env{
	MaxAttempts: "TRIBUNAL_RETRY_MAX_ATTEMPTS",
	BaseDelay:   "TRIBUNAL_RETRY_BASE_DELAY",
	MaxDelay:    "TRIBUNAL_RETRY_MAX_DELAY",
}

// Config is the root configuration for the tribunal capture service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	DocStore        docstore.Config `toml:"docstore"`
	Storage         storage.Config  `toml:"storage"`
	Cache           cache.Config    `toml:"cache"`
	API             APIConfig       `toml:"api"`
	Retry           retry.Config    `toml:"retry"`
	Scheduler       SchedulerConfig `toml:"scheduler"`
	Browser         BrowserConfig   `toml:"browser"`
	Guard           GuardConfig     `toml:"guard"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	LogLevel        string          `toml:"log_level"`
	Version         string          `toml:"version"`
}

// Env returns the TRIBUNAL_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvTribunalEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. Without config.toml, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.DocStore.Merge(&overlay.DocStore)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.API.Merge(&overlay.API)
	c.Retry.Merge(&overlay.Retry)
	c.Scheduler.Merge(&overlay.Scheduler)
	c.Browser.Merge(&overlay.Browser)
	c.Guard.Merge(&overlay.Guard)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"docstore", func() error { return c.DocStore.Finalize(docstoreEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"cache", func() error { return c.Cache.Finalize(cacheEnv) }},
		{"api", c.API.Finalize},
		{"retry", func() error { return c.Retry.Finalize(retryEnv) }},
		{"scheduler", c.Scheduler.Finalize},
		{"browser", c.Browser.Finalize},
		{"guard", c.Guard.Finalize},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvTribunalShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvTribunalLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvTribunalVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvTribunalEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/tribunal/pkg/middleware"
	"github.com/JaimeStill/tribunal/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "TRIBUNAL_CORS_ENABLED",
	Origins:          "TRIBUNAL_CORS_ORIGINS",
	AllowedMethods:   "TRIBUNAL_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "TRIBUNAL_CORS_ALLOWED_HEADERS",
	AllowCredentials: "TRIBUNAL_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "TRIBUNAL_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "TRIBUNAL_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "TRIBUNAL_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, and pagination settings.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MetricsPath string                `toml:"metrics_path"`
	CORS        middleware.CORSConfig `toml:"cors"`
	Pagination  pagination.Config     `toml:"pagination"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MetricsPath != "" {
		c.MetricsPath = overlay.MetricsPath
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("TRIBUNAL_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("TRIBUNAL_API_METRICS_PATH"); v != "" {
		c.MetricsPath = v
	}
}

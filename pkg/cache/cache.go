// Package cache evicts cached list views from Redis after successful writes.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/tribunal/pkg/lifecycle"
)

// System invalidates cached entries by domain and key pattern.
type System interface {
	// Invalidate removes every key matching prefix:domain:pattern and returns
	// the number of keys removed.
	Invalidate(ctx context.Context, domain, pattern string) (int64, error)
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type redisCache struct {
	client    *redis.Client
	prefix    string
	scanCount int64
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a cache system. When the config is disabled a no-op System is
// returned so writers never need to branch on cache availability.
func New(cfg *Config, logger *slog.Logger) System {
	logger = logger.With("system", "cache")

	if !cfg.Enabled {
		return &noop{logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.TimeoutDuration(),
		ReadTimeout:  cfg.TimeoutDuration(),
		WriteTimeout: cfg.TimeoutDuration(),
	})

	return &redisCache{
		client:    client,
		prefix:    cfg.Prefix,
		scanCount: cfg.ScanCount,
		timeout:   cfg.TimeoutDuration(),
		logger:    logger,
	}
}

// Key builds the namespaced key or pattern for a domain.
func Key(prefix, domain, pattern string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, domain, pattern} {
		if p = strings.Trim(p, ":"); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ":")
}

func (c *redisCache) Invalidate(ctx context.Context, domain, pattern string) (int64, error) {
	if domain == "" {
		return 0, fmt.Errorf("cache invalidate: domain required")
	}
	if pattern == "" {
		pattern = "*"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	match := Key(c.prefix, domain, pattern)

	var removed int64
	iter := c.client.Scan(ctx, 0, match, c.scanCount).Iterator()
	batch := make([]string, 0, c.scanCount)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Unlink(ctx, batch...).Result()
		if err != nil {
			return err
		}
		removed += n
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= c.scanCount {
			if err := flush(); err != nil {
				return removed, fmt.Errorf("cache unlink %s: %w", match, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("cache scan %s: %w", match, err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("cache unlink %s: %w", match, err)
	}

	c.logger.Debug("cache invalidated", "match", match, "removed", removed)
	return removed, nil
}

func (c *redisCache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache connection")

	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), c.timeout)
		defer cancel()

		if err := c.client.Ping(ctx).Err(); err != nil {
			c.logger.Warn("cache ping failed; invalidation will be best-effort", "error", err)
			return
		}
		c.logger.Info("cache connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", "error", err)
			return
		}
		c.logger.Info("cache connection closed")
	})

	return nil
}

type noop struct {
	logger *slog.Logger
}

func (n *noop) Invalidate(ctx context.Context, domain, pattern string) (int64, error) {
	return 0, nil
}

func (n *noop) Start(lc *lifecycle.Coordinator) error {
	n.logger.Info("cache disabled")
	return nil
}

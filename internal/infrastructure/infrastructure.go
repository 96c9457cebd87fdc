// Package infrastructure assembles the long-lived clients every domain system
// depends on and ties their open/close to one lifecycle coordinator.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/metrics"
	"github.com/JaimeStill/tribunal/pkg/cache"
	"github.com/JaimeStill/tribunal/pkg/database"
	"github.com/JaimeStill/tribunal/pkg/docstore"
	"github.com/JaimeStill/tribunal/pkg/lifecycle"
	"github.com/JaimeStill/tribunal/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Database  database.System
	DocStore  docstore.System
	Storage   storage.System
	Cache     cache.System
}

// New creates an Infrastructure from the application configuration.
// Systems are constructed but not started; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := NewLogger(cfg.LogLevel)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	docs, err := docstore.New(&cfg.DocStore, logger)
	if err != nil {
		return nil, fmt.Errorf("docstore init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Metrics:   metrics.New(),
		Database:  db,
		DocStore:  docs,
		Storage:   store,
		Cache:     cache.New(&cfg.Cache, logger),
	}, nil
}

// NewLogger creates the process logger writing text records to stderr.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// Start registers every infrastructure system with the lifecycle coordinator.
// Domain systems must register docstore indexes before Start is called.
func (i *Infrastructure) Start() error {
	starters := []struct {
		name  string
		start func(*lifecycle.Coordinator) error
	}{
		{"database", i.Database.Start},
		{"docstore", i.DocStore.Start},
		{"storage", i.Storage.Start},
		{"cache", i.Cache.Start},
	}

	for _, s := range starters {
		if err := s.start(i.Lifecycle); err != nil {
			return fmt.Errorf("%s start failed: %w", s.name, err)
		}
	}
	return nil
}

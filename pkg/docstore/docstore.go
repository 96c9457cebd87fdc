// Package docstore provides MongoDB connection management with lifecycle coordination.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JaimeStill/tribunal/pkg/lifecycle"
)

// IndexSetup creates the indexes a collection owner requires.
// Domain packages register one per collection before Start runs.
type IndexSetup func(ctx context.Context, db *mongo.Database) error

// System manages the document store connection and lifecycle coordination.
type System interface {
	// Database returns the configured database handle.
	Database() *mongo.Database
	// RegisterIndexes queues an index setup function executed during startup.
	RegisterIndexes(setup IndexSetup)
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type mongoStore struct {
	client      *mongo.Client
	db          *mongo.Database
	logger      *slog.Logger
	connTimeout time.Duration
	indexes     []IndexSetup
}

// New creates a document store from the given configuration. The driver
// connects lazily; the server is first contacted by the startup ping.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnTimeoutDuration()).
		SetServerSelectionTimeout(cfg.ConnTimeoutDuration())

	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("connect docstore: %w", err)
	}

	return &mongoStore{
		client:      client,
		db:          client.Database(cfg.Database),
		logger:      logger.With("system", "docstore"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (m *mongoStore) Database() *mongo.Database {
	return m.db
}

func (m *mongoStore) RegisterIndexes(setup IndexSetup) {
	m.indexes = append(m.indexes, setup)
}

func (m *mongoStore) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("starting docstore connection")

	lc.RegisterCheck("docstore", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, m.connTimeout)
		defer cancel()
		return m.client.Ping(ctx, readpref.Primary())
	})

	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), m.connTimeout)
		defer cancel()

		if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
			m.logger.Error("docstore ping failed", "error", err)
			return
		}

		for _, setup := range m.indexes {
			if err := setup(lc.Context(), m.db); err != nil {
				m.logger.Error("docstore index setup failed", "error", err)
			}
		}

		m.logger.Info("docstore connection established", "database", m.db.Name())
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		m.logger.Info("closing docstore connection")

		ctx, cancel := context.WithTimeout(context.Background(), m.connTimeout)
		defer cancel()

		if err := m.client.Disconnect(ctx); err != nil {
			m.logger.Error("docstore disconnect failed", "error", err)
			return
		}

		m.logger.Info("docstore connection closed")
	})

	return nil
}

package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	config "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Config"
	logger "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Logger"
	implementation "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Implementation"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container manages dependencies and their lifecycle
type Container struct {
	mongoCfg   config.MongoConfig
	logger     *logger.Logger
	mongo      *mongo.Client
	mu         sync.Mutex
	cleanupFns []func(context.Context) error
}

// ApiContainer manages dependencies for the dashboard API service
type ApiContainer struct {
	*Container
	config *config.ApiServiceConfig
}

// CollectorContainer manages dependencies for the collector service
type CollectorContainer struct {
	*Container
	config *config.CollectorServiceConfig
}

// NewApiContainer creates a new container for the API service
func NewApiContainer() (*ApiContainer, error) {
	cfg, err := config.LoadApiConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load API configuration: %w", err)
	}

	log := logger.NewLogger(&cfg.Logging)

	return &ApiContainer{
		Container: newBase(cfg.Mongo, log),
		config:    cfg,
	}, nil
}

// NewCollectorContainer creates a new container for the collector service
func NewCollectorContainer() (*CollectorContainer, error) {
	cfg, err := config.LoadCollectorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load collector configuration: %w", err)
	}

	log := logger.NewLogger(&cfg.Logging)

	return &CollectorContainer{
		Container: newBase(cfg.Mongo, log),
		config:    cfg,
	}, nil
}

func newBase(mongoCfg config.MongoConfig, log *logger.Logger) *Container {
	c := &Container{
		mongoCfg: mongoCfg,
		logger:   log,
	}
	c.cleanupFns = append(c.cleanupFns, func(ctx context.Context) error {
		if c.mongo != nil {
			return c.mongo.Disconnect(ctx)
		}
		return nil
	})
	return c
}

// GetConfig returns the API service configuration
func (c *ApiContainer) GetConfig() *config.ApiServiceConfig {
	return c.config
}

// GetConfig returns the collector service configuration
func (c *CollectorContainer) GetConfig() *config.CollectorServiceConfig {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetMongoDatabase returns the application database, connecting lazily.
func (c *Container) GetMongoDatabase() (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mongo == nil {
		client, err := implementation.ConnectMongoWithTimeout(c.mongoCfg.URI, 20*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		c.mongo = client
	}

	return c.mongo.Database(c.mongoCfg.DBName), nil
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.cleanupFns) - 1; i >= 0; i-- {
		if err := c.cleanupFns[i](ctx); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// Package container provides dependency injection management for the Lark
// backend. It consolidates all services and provides type-safe access to
// dependencies.
package container

import (
	"context"
	"sync"

	"github.com/larkhq/backend/internal/actionstate"
	"github.com/larkhq/backend/internal/auth"
	"github.com/larkhq/backend/internal/cache"
	"github.com/larkhq/backend/internal/engagement"
	"github.com/larkhq/backend/internal/feed"
	"github.com/larkhq/backend/internal/logger"
	"github.com/larkhq/backend/internal/poll"
	"github.com/larkhq/backend/internal/relationship"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies and provides type-safe access.
// It implements the Service Locator pattern with additional lifecycle
// management.
type Container struct {
	// Core infrastructure
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	// Services
	auth *auth.Service

	// Domain engines
	aggregator    *actionstate.Aggregator
	composer      *feed.Composer
	relationships *relationship.Manager
	engagements   *engagement.Manager
	polls         *poll.Engine

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container.
// Services should be registered using Set* methods.
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// SetDB registers the database connection
func (c *Container) SetDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetLogger registers the logger
func (c *Container) SetLogger(l *zap.Logger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger returns the logger instance
func (c *Container) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetCache registers the Redis cache client
func (c *Container) SetCache(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

// Cache returns the Redis cache client
func (c *Container) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// SetAuthService registers the authentication service
func (c *Container) SetAuthService(service *auth.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = service
	return c
}

// Auth returns the authentication service
func (c *Container) Auth() *auth.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// BuildEngines constructs the domain engines over the registered database
// and cache. Call after SetDB (and SetCache if Redis is configured).
func (c *Container) BuildEngines() *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aggregator = actionstate.NewAggregator(c.db)
	c.composer = feed.NewComposer(c.db, c.cache)
	c.relationships = relationship.NewManager(c.db)
	c.engagements = engagement.NewManager(c.db)
	c.polls = poll.NewEngine(c.db)
	return c
}

// Aggregator returns the per-viewer action state aggregator
func (c *Container) Aggregator() *actionstate.Aggregator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aggregator
}

// Composer returns the feed composer
func (c *Container) Composer() *feed.Composer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.composer
}

// Relationships returns the relationship transaction manager
func (c *Container) Relationships() *relationship.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.relationships
}

// Engagements returns the engagement transaction manager
func (c *Container) Engagements() *engagement.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engagements
}

// Polls returns the poll engine
func (c *Container) Polls() *poll.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.polls
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first
// cleaned up) so dependencies shut down after their dependents.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup performs graceful shutdown of all registered services.
// It calls cleanup functions in reverse order of registration.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](ctx); err != nil {
			c.Logger().Error("Cleanup function failed",
				zap.Int("index", i),
				zap.Error(err))
		}
	}

	return nil
}

// Validate checks that all required dependencies are registered.
// This should be called after initialization and before starting the server.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}

	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.auth == nil {
		missingDeps = append(missingDeps, "auth service")
	}
	if c.composer == nil {
		missingDeps = append(missingDeps, "feed composer")
	}

	if len(missingDeps) > 0 {
		return NewInitializationError("Missing required dependencies", missingDeps)
	}

	return nil
}

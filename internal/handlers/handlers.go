package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larkhq/backend/internal/actionstate"
	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/auth"
	"github.com/larkhq/backend/internal/cache"
	"github.com/larkhq/backend/internal/container"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/engagement"
	"github.com/larkhq/backend/internal/feed"
	"github.com/larkhq/backend/internal/logger"
	"github.com/larkhq/backend/internal/middleware"
	"github.com/larkhq/backend/internal/poll"
	"github.com/larkhq/backend/internal/relationship"
)

// Handlers contains all HTTP handlers for the API. They are thin glue:
// parse the request, call the owning engine, translate the error.
type Handlers struct {
	auth          *auth.Service
	agg           *actionstate.Aggregator
	composer      *feed.Composer
	relationships *relationship.Manager
	engagements   *engagement.Manager
	polls         *poll.Engine
}

// NewHandlers creates a handlers instance over the global database
// handle. redisClient may be nil (tests).
func NewHandlers(authService *auth.Service, redisClient *cache.RedisClient) *Handlers {
	db := database.DB
	return &Handlers{
		auth:          authService,
		agg:           actionstate.NewAggregator(db),
		composer:      feed.NewComposer(db, redisClient),
		relationships: relationship.NewManager(db),
		engagements:   engagement.NewManager(db),
		polls:         poll.NewEngine(db),
	}
}

// NewHandlersFromContainer wires handlers from a built container
func NewHandlersFromContainer(c *container.Container) *Handlers {
	return &Handlers{
		auth:          c.Auth(),
		agg:           c.Aggregator(),
		composer:      c.Composer(),
		relationships: c.Relationships(),
		engagements:   c.Engagements(),
		polls:         c.Polls(),
	}
}

// respondError translates engine errors into HTTP responses. The
// status lives on the typed error; anything untyped is a 500.
func respondError(c *gin.Context, err error) {
	if apiErr, ok := apperr.As(err); ok {
		middleware.RecordError(string(apiErr.Code), c.FullPath())
		body := gin.H{"error": apiErr.Message, "code": apiErr.Code}
		if apiErr.Field != "" {
			body["field"] = apiErr.Field
		}
		c.JSON(apiErr.Status, body)
		return
	}

	logger.ErrorWithFields("request failed", err)
	middleware.RecordError("INTERNAL_ERROR", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// viewerID returns the authenticated user id or "" for anonymous
// requests behind OptionalAuthMiddleware.
func viewerID(c *gin.Context) string {
	if id, ok := c.Get("user_id"); ok {
		if str, ok := id.(string); ok {
			return str
		}
	}
	return ""
}

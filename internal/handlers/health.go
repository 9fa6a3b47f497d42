package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larkhq/backend/internal/cache"
	"github.com/larkhq/backend/internal/database"
)

// Health reports service liveness and dependency status
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok"}

	if err := database.Health(); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if redisClient := cache.GetRedisClient(); redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"checks": checks,
	})
}

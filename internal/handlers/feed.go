package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larkhq/backend/internal/middleware"
	"github.com/larkhq/backend/internal/util"
)

// GetFeed returns a composed feed page for the viewer
// GET /api/v1/feed
func (h *Handlers) GetFeed(c *gin.Context) {
	viewer := viewerID(c)
	limit := util.ParseInt(c.DefaultQuery("limit", "50"), 50)

	start := time.Now()
	items, err := h.composer.Compose(viewer, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	viewerType := "authenticated"
	if viewer == "" {
		viewerType = "anonymous"
	}
	middleware.RecordFeedComposition(viewerType, time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larkhq/backend/internal/metrics"
	"github.com/larkhq/backend/internal/models"
	"github.com/larkhq/backend/internal/relationship"
	"github.com/larkhq/backend/internal/util"
)

// relationshipRequest carries the optional post attribution for a
// relationship mutation (e.g. follow from a feed item).
type relationshipRequest struct {
	PostID *string `json:"post_id"`
}

// FollowUser creates a follow edge toward :id
// POST /api/v1/users/:id/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	h.mutateRelationship(c, models.EdgeFollow, true)
}

// UnfollowUser removes the follow edge
// DELETE /api/v1/users/:id/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	h.mutateRelationship(c, models.EdgeFollow, false)
}

// BlockUser creates a block edge toward :id
// POST /api/v1/users/:id/block
func (h *Handlers) BlockUser(c *gin.Context) {
	h.mutateRelationship(c, models.EdgeBlock, true)
}

// UnblockUser removes the block edge
// DELETE /api/v1/users/:id/block
func (h *Handlers) UnblockUser(c *gin.Context) {
	h.mutateRelationship(c, models.EdgeBlock, false)
}

// MuteUser creates a mute edge toward :id
// POST /api/v1/users/:id/mute
func (h *Handlers) MuteUser(c *gin.Context) {
	h.mutateRelationship(c, models.EdgeMute, true)
}

// UnmuteUser removes the mute edge
// DELETE /api/v1/users/:id/mute
func (h *Handlers) UnmuteUser(c *gin.Context) {
	h.mutateRelationship(c, models.EdgeMute, false)
}

func (h *Handlers) mutateRelationship(c *gin.Context, kind models.EdgeKind, add bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req relationshipRequest
	// Body is optional; a bare POST means no post attribution
	_ = c.ShouldBindJSON(&req)

	var result *relationship.Result
	var err error
	if add {
		result, err = h.relationships.Add(userID, c.Param("id"), kind, req.PostID)
	} else {
		result, err = h.relationships.Remove(userID, c.Param("id"), kind, req.PostID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	recordRelationshipMetric(kind, add)

	status := http.StatusOK
	if add {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func recordRelationshipMetric(kind models.EdgeKind, add bool) {
	app := metrics.App()
	switch kind {
	case models.EdgeFollow:
		if add {
			app.FollowsTotal.WithLabelValues().Inc()
		} else {
			app.UnfollowsTotal.WithLabelValues().Inc()
		}
	case models.EdgeBlock:
		if add {
			app.BlocksTotal.WithLabelValues().Inc()
		}
	case models.EdgeMute:
		if add {
			app.MutesTotal.WithLabelValues().Inc()
		}
	}
}

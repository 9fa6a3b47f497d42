package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/metrics"
	"github.com/larkhq/backend/internal/util"
)

// VotePoll records the viewer's vote on a poll post
// POST /api/v1/posts/:id/vote
func (h *Handlers) VotePoll(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		OptionIndex *int `json:"option_index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("option_index", "option_index is required"))
		return
	}

	poll, err := h.polls.SetVote(userID, c.Param("id"), *req.OptionIndex)
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.App().PollVotesTotal.WithLabelValues().Inc()
	c.JSON(http.StatusCreated, poll)
}

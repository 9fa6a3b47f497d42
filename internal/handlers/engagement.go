package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/larkhq/backend/internal/metrics"
	"github.com/larkhq/backend/internal/util"
)

// LikePost records a like and returns the refreshed engagement state
// POST /api/v1/posts/:id/like
func (h *Handlers) LikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	state, err := h.engagements.AddLike(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.App().LikesTotal.WithLabelValues().Inc()
	c.JSON(http.StatusCreated, state)
}

// UnlikePost removes a like
// DELETE /api/v1/posts/:id/like
func (h *Handlers) UnlikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	state, err := h.engagements.RemoveLike(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// RepostPost records a repost and returns the synthesized repost view
// POST /api/v1/posts/:id/repost
func (h *Handlers) RepostPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	view, err := h.engagements.AddRepost(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.App().RepostsTotal.WithLabelValues().Inc()
	c.JSON(http.StatusCreated, view)
}

// UndoRepost removes a repost
// DELETE /api/v1/posts/:id/repost
func (h *Handlers) UndoRepost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	state, err := h.engagements.RemoveRepost(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// BookmarkPost records a private bookmark
// POST /api/v1/posts/:id/bookmark
func (h *Handlers) BookmarkPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	state, err := h.engagements.AddBookmark(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.App().BookmarksTotal.WithLabelValues().Inc()
	c.JSON(http.StatusCreated, state)
}

// UnbookmarkPost removes a bookmark
// DELETE /api/v1/posts/:id/bookmark
func (h *Handlers) UnbookmarkPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	state, err := h.engagements.RemoveBookmark(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

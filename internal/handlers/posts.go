package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/metrics"
	"github.com/larkhq/backend/internal/models"
	"github.com/larkhq/backend/internal/poll"
	"gorm.io/gorm"
)

// CreatePostRequest is the post creation payload. Exactly the fields
// matching Kind are honored; a poll post carries the poll sub-object.
type CreatePostRequest struct {
	Kind       models.PostKind       `json:"kind" binding:"required"`
	Body       string                `json:"body"`
	ImageURLs  []string              `json:"image_urls"`
	GifURL     string                `json:"gif_url"`
	VideoURL   string                `json:"video_url"`
	QuotedPost *string               `json:"quoted_post_id"`
	ParentPost *string               `json:"parent_post_id"`
	Visibility models.PostVisibility `json:"visibility"`
	Scheduled  *time.Time            `json:"scheduled_at"`
	Poll       *CreatePollRequest    `json:"poll"`
}

// CreatePollRequest describes the poll attached to a poll post
type CreatePollRequest struct {
	LengthDays    int      `json:"length_days"`
	LengthHours   int      `json:"length_hours"`
	LengthMinutes int      `json:"length_minutes"`
	Options       []string `json:"options" binding:"required,min=2,max=4"`
}

// CreatePost creates a post, including poll posts with length validation
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID := viewerID(c)
	if userID == "" {
		respondError(c, apperr.Unauthenticated("authentication required"))
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("body", err.Error()))
		return
	}

	if err := validatePostContent(&req); err != nil {
		metrics.App().ValidationFailures.WithLabelValues("body").Inc()
		respondError(c, err)
		return
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	post := &models.Post{
		UserID:       userID,
		Kind:         req.Kind,
		Body:         req.Body,
		ImageURL:     req.ImageURLs,
		GifURL:       req.GifURL,
		VideoURL:     req.VideoURL,
		QuotedPostID: req.QuotedPost,
		ParentPostID: req.ParentPost,
		Visibility:   visibility,
		ScheduledAt:  req.Scheduled,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if req.ParentPost != nil {
			if err := requirePost(tx, *req.ParentPost, "parent post"); err != nil {
				return err
			}
		}
		if req.QuotedPost != nil {
			if err := requirePost(tx, *req.QuotedPost, "quoted post"); err != nil {
				return err
			}
		}

		if err := tx.Create(post).Error; err != nil {
			return err
		}

		if req.Kind == models.PostKindPoll {
			pollRow := &models.Poll{
				PostID:        post.ID,
				LengthDays:    req.Poll.LengthDays,
				LengthHours:   req.Poll.LengthHours,
				LengthMinutes: req.Poll.LengthMinutes,
			}
			if err := tx.Create(pollRow).Error; err != nil {
				return err
			}
			for i, label := range req.Poll.Options {
				option := &models.PollOption{PollID: pollRow.ID, Idx: i, Label: label}
				if err := tx.Create(option).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.App().PostsCreated.WithLabelValues(string(post.Kind), string(post.Visibility)).Inc()

	created, err := h.loadPost(userID, post.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetPost returns a single post with viewer-decorated state
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.loadPost(viewerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// RecordPostStat upserts one per-viewer stat flag on a post
// POST /api/v1/posts/:id/stats
func (h *Handlers) RecordPostStat(c *gin.Context) {
	userID := viewerID(c)
	if userID == "" {
		respondError(c, apperr.Unauthenticated("authentication required"))
		return
	}

	var req struct {
		Flag string `json:"flag" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("flag", "flag is required"))
		return
	}
	if !models.IsStatFlag(req.Flag) {
		respondError(c, apperr.Validation("flag", "unknown stat flag"))
		return
	}

	postID := c.Param("id")
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := requirePost(tx, postID, "post"); err != nil {
			return err
		}
		return models.UpsertPostStatFlag(tx, postID, userID, req.Flag)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

// loadPost fetches a post with its poll and decorates it for the viewer
func (h *Handlers) loadPost(viewer, postID string) (*models.Post, error) {
	var post models.Post
	err := database.DB.Preload("User").Preload("Poll").
		Preload("Poll.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx ASC")
		}).
		First(&post, "id = ?", postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("post")
		}
		return nil, err
	}

	if err := h.agg.Decorate(viewer, []*models.Post{&post}); err != nil {
		return nil, err
	}
	if err := h.polls.DecoratePolls(viewer, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

func requirePost(tx *gorm.DB, postID, what string) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound(what)
	}
	return nil
}

// validatePostContent checks the kind-specific payload rules
func validatePostContent(req *CreatePostRequest) error {
	switch req.Kind {
	case models.PostKindText:
		if req.Body == "" {
			return apperr.Validation("body", "text posts require a body")
		}
	case models.PostKindImages:
		if len(req.ImageURLs) == 0 {
			return apperr.Validation("image_urls", "image posts require at least one image")
		}
		if len(req.ImageURLs) > 4 {
			return apperr.Validation("image_urls", "image posts allow at most 4 images")
		}
	case models.PostKindGif:
		if req.GifURL == "" {
			return apperr.Validation("gif_url", "gif posts require a gif URL")
		}
	case models.PostKindVideo:
		if req.VideoURL == "" {
			return apperr.Validation("video_url", "video posts require a video URL")
		}
	case models.PostKindPoll:
		if req.Poll == nil {
			return apperr.Validation("poll", "poll posts require a poll")
		}
		if err := poll.ValidateLength(req.Poll.LengthDays, req.Poll.LengthHours, req.Poll.LengthMinutes); err != nil {
			return err
		}
	default:
		return apperr.Validation("kind", "unknown post kind")
	}

	if len(req.Body) > 1000 {
		return apperr.Validation("body", "body must be at most 1000 characters")
	}

	switch req.Visibility {
	case "", models.VisibilityPublic, models.VisibilityFollowers:
	default:
		return apperr.Validation("visibility", "unknown visibility")
	}
	return nil
}

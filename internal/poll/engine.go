package poll

import (
	"errors"
	"time"

	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/models"
	"gorm.io/gorm"
)

// MaxLength caps poll duration at creation time
const MaxLength = 7 * 24 * time.Hour

// Engine owns poll voting and per-viewer poll state. Option tallies are
// the one incrementally maintained counter in the system: the increment
// rides in the same transaction as the vote insert.
type Engine struct {
	db *gorm.DB
}

// NewEngine creates a poll engine over the given database handle
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// ValidateLength checks a poll duration at creation time: every
// component non-negative, total positive and at most 7 days.
func ValidateLength(days, hours, minutes int) error {
	if days < 0 || hours < 0 || minutes < 0 {
		return apperr.Validation("length", "poll length components must be non-negative")
	}
	total := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute
	if total <= 0 {
		return apperr.Validation("length", "poll length must be positive")
	}
	if total > MaxLength {
		return apperr.Validation("length", "poll length must not exceed 7 days")
	}
	return nil
}

// SetVote records viewerID's vote for optionIndex on the given poll
// post. The voting window is [post.CreatedAt, post.CreatedAt+length];
// one vote per (post, user), arbitrated by the unique index inside the
// transaction. Returns the refreshed poll with viewer state applied.
func (e *Engine) SetVote(viewerID, postID string, optionIndex int) (*models.Poll, error) {
	if viewerID == "" {
		return nil, apperr.Unauthenticated("authentication required to vote")
	}

	var post models.Post
	err := e.db.Preload("Poll").Preload("Poll.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).First(&post, "id = ?", postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("post")
		}
		return nil, err
	}

	if post.Kind != models.PostKindPoll || post.Poll == nil {
		return nil, apperr.DomainState("post has no poll")
	}
	poll := post.Poll

	// The window is anchored on the post: scheduled posts carry a
	// creation time in the future and their polls open with them
	now := time.Now().UTC()
	if now.Before(post.CreatedAt) {
		return nil, apperr.DomainState("poll has not started")
	}
	if now.After(post.CreatedAt.Add(poll.Length())) {
		return nil, apperr.DomainState("poll has expired")
	}

	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return nil, apperr.DomainState("invalid option index")
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		vote := &models.PollVote{
			PostID:      postID,
			UserID:      viewerID,
			OptionIndex: optionIndex,
		}
		if err := tx.Create(vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("vote")
			}
			return err
		}

		return tx.Model(&models.PollOption{}).
			Where("poll_id = ? AND idx = ?", poll.ID, optionIndex).
			UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}

	return e.GetPollState(viewerID, postID)
}

// GetPollState loads a poll with its options and the viewer's state.
// The carrying post is loaded too: voting-off depends on its author
// and creation time.
func (e *Engine) GetPollState(viewerID, postID string) (*models.Poll, error) {
	var post models.Post
	err := e.db.Preload("Poll").Preload("Poll.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).First(&post, "id = ?", postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("poll")
		}
		return nil, err
	}
	if post.Poll == nil {
		return nil, apperr.NotFound("poll")
	}

	votes, err := e.viewerVotes(viewerID, []string{postID})
	if err != nil {
		return nil, err
	}
	applyViewerState(&post, viewerID, votes[postID])
	return post.Poll, nil
}

// DecoratePolls batches per-viewer poll state across a page of posts:
// one query for the viewer's votes, then in-memory marking of the
// chosen option and the voting-off flag.
func (e *Engine) DecoratePolls(viewerID string, posts []*models.Post) error {
	pollPostIDs := make([]string, 0)
	for _, p := range posts {
		if p.Kind == models.PostKindPoll && p.Poll != nil {
			pollPostIDs = append(pollPostIDs, p.ID)
		}
	}
	if len(pollPostIDs) == 0 {
		return nil
	}

	votes, err := e.viewerVotes(viewerID, pollPostIDs)
	if err != nil {
		return err
	}

	for _, p := range posts {
		if p.Kind == models.PostKindPoll && p.Poll != nil {
			applyViewerState(p, viewerID, votes[p.ID])
		}
	}
	return nil
}

// viewerVotes returns the viewer's vote rows keyed by post id. An empty
// viewer id short-circuits to no votes.
func (e *Engine) viewerVotes(viewerID string, postIDs []string) (map[string]*models.PollVote, error) {
	byPost := make(map[string]*models.PollVote)
	if viewerID == "" {
		return byPost, nil
	}

	var votes []models.PollVote
	err := e.db.Where("user_id = ? AND post_id IN ?", viewerID, postIDs).Find(&votes).Error
	if err != nil {
		return nil, err
	}
	for i := range votes {
		byPost[votes[i].PostID] = &votes[i]
	}
	return byPost, nil
}

// applyViewerState marks the viewer's chosen option and computes the
// voting-off flag: voting is off for the post's author, for a viewer
// who already voted, and once the window past post.CreatedAt closes.
func applyViewerState(post *models.Post, viewerID string, vote *models.PollVote) {
	poll := post.Poll
	expired := time.Now().UTC().After(post.CreatedAt.Add(poll.Length()))
	authored := viewerID != "" && post.UserID == viewerID
	poll.IsVotingOff = expired || authored || vote != nil
	if vote == nil {
		return
	}
	for i := range poll.Options {
		if poll.Options[i].Idx == vote.OptionIndex {
			poll.Options[i].IsLoggedInUserVoted = true
		}
	}
}

package engagement

import (
	"errors"
	"fmt"
	"time"

	"github.com/larkhq/backend/internal/actionstate"
	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/models"
	"gorm.io/gorm"
)

// RepostView is the synthesized feed entry returned when a repost is
// created: the target post with refreshed engagement state plus the
// reposting user as attribution.
type RepostView struct {
	Post       *models.Post `json:"post"`
	RepostedBy *models.User `json:"reposted_by"`
	RepostedAt time.Time    `json:"reposted_at"`
}

// Manager owns like / repost / bookmark join records. A record's
// existence is the engagement; adds and removes run in one storage
// transaction with the (post, user) unique index arbitrating
// concurrent duplicates.
type Manager struct {
	db  *gorm.DB
	agg *actionstate.Aggregator
}

// NewManager creates an engagement manager over the given database handle
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db, agg: actionstate.NewAggregator(db)}
}

// AddLike records viewerID liking postID and returns the refreshed
// engagement state for the post.
func (m *Manager) AddLike(viewerID, postID string) (*actionstate.State, error) {
	err := m.add(viewerID, postID, "like", func() interface{} {
		return &models.Like{PostID: postID, UserID: viewerID}
	}, nil)
	if err != nil {
		return nil, err
	}
	return m.agg.GetStateForPost(viewerID, postID)
}

// RemoveLike deletes the like record. Removing an absent like is a
// domain-state error.
func (m *Manager) RemoveLike(viewerID, postID string) (*actionstate.State, error) {
	err := m.remove(viewerID, postID, "liked", &models.Like{})
	if err != nil {
		return nil, err
	}
	return m.agg.GetStateForPost(viewerID, postID)
}

// AddRepost records the repost and returns a synthesized repost view
// carrying the reposting user as attribution.
func (m *Manager) AddRepost(viewerID, postID string) (*RepostView, error) {
	var repost *models.Repost
	err := m.add(viewerID, postID, "repost", func() interface{} {
		repost = &models.Repost{PostID: postID, UserID: viewerID}
		return repost
	}, nil)
	if err != nil {
		return nil, err
	}

	var post models.Post
	if err := m.db.Preload("User").First(&post, "id = ?", postID).Error; err != nil {
		return nil, err
	}
	if err := m.agg.Decorate(viewerID, []*models.Post{&post}); err != nil {
		return nil, err
	}

	var reposter models.User
	if err := m.db.First(&reposter, "id = ?", viewerID).Error; err != nil {
		return nil, err
	}

	return &RepostView{
		Post:       &post,
		RepostedBy: &reposter,
		RepostedAt: repost.CreatedAt,
	}, nil
}

// RemoveRepost deletes the repost record
func (m *Manager) RemoveRepost(viewerID, postID string) (*actionstate.State, error) {
	err := m.remove(viewerID, postID, "reposted", &models.Repost{})
	if err != nil {
		return nil, err
	}
	return m.agg.GetStateForPost(viewerID, postID)
}

// AddBookmark records the private bookmark and marks the viewer's
// bookmarked-from-post stat flag in the same transaction.
func (m *Manager) AddBookmark(viewerID, postID string) (*actionstate.State, error) {
	err := m.add(viewerID, postID, "bookmark", func() interface{} {
		return &models.Bookmark{PostID: postID, UserID: viewerID}
	}, func(tx *gorm.DB) error {
		return models.UpsertPostStatFlag(tx, postID, viewerID, models.StatBookmarkedFromPost)
	})
	if err != nil {
		return nil, err
	}
	return m.agg.GetStateForPost(viewerID, postID)
}

// RemoveBookmark deletes the bookmark record
func (m *Manager) RemoveBookmark(viewerID, postID string) (*actionstate.State, error) {
	err := m.remove(viewerID, postID, "bookmarked", &models.Bookmark{})
	if err != nil {
		return nil, err
	}
	return m.agg.GetStateForPost(viewerID, postID)
}

// add inserts one join record inside a transaction: post existence
// check, insert, optional follow-up writes. A duplicate insert aborts
// with a conflict before any follow-up runs.
func (m *Manager) add(viewerID, postID, noun string, record func() interface{}, after func(tx *gorm.DB) error) error {
	if viewerID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	if postID == "" {
		return apperr.Validation("post_id", "post id is required")
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := checkPostExists(tx, postID); err != nil {
			return err
		}

		if err := tx.Create(record()).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict(noun)
			}
			return err
		}

		if after != nil {
			return after(tx)
		}
		return nil
	})
}

// remove deletes one join record inside a transaction. Zero rows
// affected means the engagement never existed.
func (m *Manager) remove(viewerID, postID, participle string, model interface{}) error {
	if viewerID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	if postID == "" {
		return apperr.Validation("post_id", "post id is required")
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := checkPostExists(tx, postID); err != nil {
			return err
		}

		res := tx.Where("post_id = ? AND user_id = ?", postID, viewerID).Delete(model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.DomainState(fmt.Sprintf("post is not %s", participle))
		}
		return nil
	})
}

func checkPostExists(tx *gorm.DB, postID string) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("post")
	}
	return nil
}

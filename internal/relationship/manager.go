package relationship

import (
	"errors"
	"fmt"

	"github.com/larkhq/backend/internal/actionstate"
	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/models"
	"gorm.io/gorm"
)

// Result is what a relationship mutation hands back: either the
// refreshed post (postID variant) or the two users with freshly
// derived relationship counts.
type Result struct {
	LoggedInUser *models.User `json:"logged_in_user,omitempty"`
	TargetUser   *models.User `json:"target_user,omitempty"`
	Post         *models.Post `json:"post,omitempty"`
}

// Manager owns follow/block/mute edge mutations. Every mutation runs in
// one storage transaction; follow and block are mutually exclusive for
// an ordered user pair and the exclusivity delete rides in the same
// transaction as the insert.
type Manager struct {
	db  *gorm.DB
	agg *actionstate.Aggregator
}

// NewManager creates a relationship manager over the given database handle
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db, agg: actionstate.NewAggregator(db)}
}

// exclusiveKind returns the edge kind that must not coexist with kind
// on the same ordered pair, or "" when there is none.
func exclusiveKind(kind models.EdgeKind) models.EdgeKind {
	switch kind {
	case models.EdgeFollow:
		return models.EdgeBlock
	case models.EdgeBlock:
		return models.EdgeFollow
	}
	return ""
}

// Add creates a relationship edge from fromUserID to toUserID. postID
// optionally attributes the action to a post; the matching per-viewer
// stat flag is upserted in the same transaction and the refreshed post
// is returned instead of the user pair.
func (m *Manager) Add(fromUserID, toUserID string, kind models.EdgeKind, postID *string) (*Result, error) {
	if err := m.validatePair(fromUserID, toUserID, kind); err != nil {
		return nil, err
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := m.checkUsers(tx, fromUserID, toUserID); err != nil {
			return err
		}

		edge := &models.RelationshipEdge{
			FromUserID: fromUserID,
			ToUserID:   toUserID,
			Kind:       kind,
		}
		if err := tx.Create(edge).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict(string(kind) + " edge")
			}
			return err
		}

		if excl := exclusiveKind(kind); excl != "" {
			err := tx.Where("from_user_id = ? AND to_user_id = ? AND kind = ?",
				fromUserID, toUserID, excl).
				Delete(&models.RelationshipEdge{}).Error
			if err != nil {
				return err
			}
		}

		if postID != nil && kind == models.EdgeFollow {
			if err := models.UpsertPostStatFlag(tx, *postID, fromUserID, models.StatFollowedFromPost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m.buildResult(fromUserID, toUserID, postID)
}

// Remove deletes the relationship edge. Removing an edge that does not
// exist is a domain-state error, not a no-op.
func (m *Manager) Remove(fromUserID, toUserID string, kind models.EdgeKind, postID *string) (*Result, error) {
	if err := m.validatePair(fromUserID, toUserID, kind); err != nil {
		return nil, err
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := m.checkUsers(tx, fromUserID, toUserID); err != nil {
			return err
		}

		res := tx.Where("from_user_id = ? AND to_user_id = ? AND kind = ?",
			fromUserID, toUserID, kind).
			Delete(&models.RelationshipEdge{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.DomainState(fmt.Sprintf("not currently %s", progressive(kind)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m.buildResult(fromUserID, toUserID, postID)
}

func (m *Manager) validatePair(fromUserID, toUserID string, kind models.EdgeKind) error {
	if fromUserID == "" {
		return apperr.Unauthenticated("authentication required")
	}
	if toUserID == "" {
		return apperr.Validation("user_id", "target user id is required")
	}
	if fromUserID == toUserID {
		return apperr.Validation("user_id", fmt.Sprintf("cannot %s yourself", kind))
	}
	switch kind {
	case models.EdgeFollow, models.EdgeBlock, models.EdgeMute:
	default:
		return apperr.Validation("kind", "unknown relationship kind")
	}
	return nil
}

// checkUsers verifies both ends of the edge inside the transaction. A
// missing acting user means the caller's session is stale.
func (m *Manager) checkUsers(tx *gorm.DB, fromUserID, toUserID string) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", fromUserID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.Unauthenticated("acting user no longer exists")
	}

	if err := tx.Model(&models.User{}).Where("id = ?", toUserID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

// buildResult loads the refreshed post (postID variant) or the user
// pair with derived counts. Counts are never stored; they are counted
// from the edge table on every read.
func (m *Manager) buildResult(fromUserID, toUserID string, postID *string) (*Result, error) {
	if postID != nil {
		post, err := m.refreshedPost(fromUserID, *postID)
		if err != nil {
			return nil, err
		}
		return &Result{Post: post}, nil
	}

	loggedIn, err := m.userWithCounts(fromUserID, "")
	if err != nil {
		return nil, err
	}
	target, err := m.userWithCounts(toUserID, fromUserID)
	if err != nil {
		return nil, err
	}
	return &Result{LoggedInUser: loggedIn, TargetUser: target}, nil
}

func (m *Manager) refreshedPost(viewerID, postID string) (*models.Post, error) {
	var post models.Post
	err := m.db.Preload("User").First(&post, "id = ?", postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("post")
		}
		return nil, err
	}
	if err := m.agg.Decorate(viewerID, []*models.Post{&post}); err != nil {
		return nil, err
	}
	return &post, nil
}

// userWithCounts loads a user and derives follower/following counts.
// When viewerID is set, the viewer's edges toward the user populate
// the IsFollowing / IsBlocking / IsMuting flags.
func (m *Manager) userWithCounts(userID, viewerID string) (*models.User, error) {
	var user models.User
	err := m.db.First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, err
	}

	err = m.db.Model(&models.RelationshipEdge{}).
		Where("to_user_id = ? AND kind = ?", userID, models.EdgeFollow).
		Count(&user.FollowerCount).Error
	if err != nil {
		return nil, err
	}

	err = m.db.Model(&models.RelationshipEdge{}).
		Where("from_user_id = ? AND kind = ?", userID, models.EdgeFollow).
		Count(&user.FollowingCount).Error
	if err != nil {
		return nil, err
	}

	if viewerID != "" {
		var kinds []models.EdgeKind
		err = m.db.Model(&models.RelationshipEdge{}).
			Where("from_user_id = ? AND to_user_id = ?", viewerID, userID).
			Pluck("kind", &kinds).Error
		if err != nil {
			return nil, err
		}
		for _, k := range kinds {
			switch k {
			case models.EdgeFollow:
				user.IsFollowing = true
			case models.EdgeBlock:
				user.IsBlocking = true
			case models.EdgeMute:
				user.IsMuting = true
			}
		}
	}

	return &user, nil
}

func progressive(kind models.EdgeKind) string {
	switch kind {
	case models.EdgeFollow:
		return "following"
	case models.EdgeBlock:
		return "blocking"
	case models.EdgeMute:
		return "muting"
	}
	return string(kind)
}

package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EdgeKind discriminates the relationship edge collection
type EdgeKind string

const (
	EdgeFollow EdgeKind = "follow"
	EdgeBlock  EdgeKind = "block"
	EdgeMute   EdgeKind = "mute"
)

// RelationshipEdge is a directed relationship between two users.
// Unique per (from, to, kind). Follow and Block are mutually exclusive
// for an ordered pair; the relationship manager enforces that inside
// the edge transaction.
type RelationshipEdge struct {
	ID         string   `gorm:"primaryKey;type:uuid" json:"id"`
	FromUserID string   `gorm:"not null;uniqueIndex:idx_edges_from_to_kind;index" json:"from_user_id"`
	ToUserID   string   `gorm:"not null;uniqueIndex:idx_edges_from_to_kind;index" json:"to_user_id"`
	Kind       EdgeKind `gorm:"not null;uniqueIndex:idx_edges_from_to_kind" json:"kind"`

	FromUser User `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUser   User `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the discriminated edge collection in one table
func (RelationshipEdge) TableName() string {
	return "relationship_edges"
}

// Like is a join record; its existence is the engagement.
// The combination of PostID and UserID must be unique.
type Like struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;uniqueIndex:idx_likes_post_user;index" json:"post_id"`
	UserID string `gorm:"not null;uniqueIndex:idx_likes_post_user;index" json:"user_id"`

	Post Post `gorm:"foreignKey:PostID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Repost is a join record resolving to the target post in feeds.
type Repost struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;uniqueIndex:idx_reposts_post_user;index" json:"post_id"`
	UserID string `gorm:"not null;uniqueIndex:idx_reposts_post_user;index" json:"user_id"`

	Post Post `gorm:"foreignKey:PostID" json:"post,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Bookmark is a private join record; never surfaced to other viewers.
type Bookmark struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;uniqueIndex:idx_bookmarks_post_user;index" json:"post_id"`
	UserID string `gorm:"not null;uniqueIndex:idx_bookmarks_post_user;index" json:"user_id"`

	Post Post `gorm:"foreignKey:PostID" json:"post,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// PostStat is the per-viewer ledger of secondary engagement flags.
// One row per (post, user); upserted by multiple subsystems.
type PostStat struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;uniqueIndex:idx_post_stats_post_user;index" json:"post_id"`
	UserID string `gorm:"not null;uniqueIndex:idx_post_stats_post_user;index" json:"user_id"`

	Viewed             bool `gorm:"default:false" json:"viewed"`
	DetailViewed       bool `gorm:"default:false" json:"detail_viewed"`
	ProfileViewed      bool `gorm:"default:false" json:"profile_viewed"`
	HashtagClicked     bool `gorm:"default:false" json:"hashtag_clicked"`
	LinkClicked        bool `gorm:"default:false" json:"link_clicked"`
	Shared             bool `gorm:"default:false" json:"shared"`
	SentInMessage      bool `gorm:"default:false" json:"sent_in_message"`
	FollowedFromPost   bool `gorm:"default:false" json:"followed_from_post"`
	BookmarkedFromPost bool `gorm:"default:false" json:"bookmarked_from_post"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stat flag column names, shared by every subsystem that upserts them
const (
	StatViewed             = "viewed"
	StatDetailViewed       = "detail_viewed"
	StatProfileViewed      = "profile_viewed"
	StatHashtagClicked     = "hashtag_clicked"
	StatLinkClicked        = "link_clicked"
	StatShared             = "shared"
	StatSentInMessage      = "sent_in_message"
	StatFollowedFromPost   = "followed_from_post"
	StatBookmarkedFromPost = "bookmarked_from_post"
)

var statFlagSetters = map[string]func(*PostStat){
	StatViewed:             func(s *PostStat) { s.Viewed = true },
	StatDetailViewed:       func(s *PostStat) { s.DetailViewed = true },
	StatProfileViewed:      func(s *PostStat) { s.ProfileViewed = true },
	StatHashtagClicked:     func(s *PostStat) { s.HashtagClicked = true },
	StatLinkClicked:        func(s *PostStat) { s.LinkClicked = true },
	StatShared:             func(s *PostStat) { s.Shared = true },
	StatSentInMessage:      func(s *PostStat) { s.SentInMessage = true },
	StatFollowedFromPost:   func(s *PostStat) { s.FollowedFromPost = true },
	StatBookmarkedFromPost: func(s *PostStat) { s.BookmarkedFromPost = true },
}

// IsStatFlag reports whether name is an upsertable stat flag column
func IsStatFlag(name string) bool {
	_, ok := statFlagSetters[name]
	return ok
}

// UpsertPostStatFlag sets one boolean flag on the (post, user) stat
// row, creating the row when absent. column must be a Stat* constant.
func UpsertPostStatFlag(tx *gorm.DB, postID, userID, column string) error {
	setter, ok := statFlagSetters[column]
	if !ok {
		return fmt.Errorf("unknown stat flag: %s", column)
	}
	stat := &PostStat{PostID: postID, UserID: userID}
	setter(stat)
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       true,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(stat).Error
}

func (e *RelationshipEdge) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (r *Repost) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateUUID()
	}
	return nil
}

func (s *PostStat) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// PostKind is the content variant of a post
type PostKind string

const (
	PostKindText   PostKind = "text"
	PostKindImages PostKind = "images"
	PostKindGif    PostKind = "gif"
	PostKindVideo  PostKind = "video"
	PostKindPoll   PostKind = "poll"
)

// PostVisibility controls who can see a post in feeds
type PostVisibility string

const (
	VisibilityPublic    PostVisibility = "public"
	VisibilityFollowers PostVisibility = "followers"
)

// Post represents a feed post. Engagement counters are never stored on
// the post row; they are derived from join records at read time and
// populated into the gorm:"-" fields below.
type Post struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Content
	Kind     PostKind    `gorm:"not null;default:text" json:"kind"`
	Body     string      `gorm:"type:text" json:"body"`
	ImageURL StringArray `gorm:"type:text[]" json:"image_urls,omitempty"`
	GifURL   string      `json:"gif_url,omitempty"`
	VideoURL string      `json:"video_url,omitempty"`

	// Quote and reply references
	QuotedPostID *string `gorm:"type:uuid;index" json:"quoted_post_id,omitempty"`
	QuotedPost   *Post   `gorm:"foreignKey:QuotedPostID" json:"quoted_post,omitempty"`
	ParentPostID *string `gorm:"type:uuid;index" json:"parent_post_id,omitempty"`

	// Visibility and scheduling
	Visibility  PostVisibility `gorm:"not null;default:public" json:"visibility"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`

	// Poll sub-structure (only for Kind == poll)
	Poll *Poll `gorm:"foreignKey:PostID" json:"poll,omitempty"`

	// Derived engagement state, populated per request by the aggregator
	LikeCount    int64 `gorm:"-" json:"like_count"`
	RepostCount  int64 `gorm:"-" json:"repost_count"`
	ReplyCount   int64 `gorm:"-" json:"reply_count"`
	ViewCount    int64 `gorm:"-" json:"view_count"`
	IsLiked      bool  `gorm:"-" json:"is_liked"`
	IsReposted   bool  `gorm:"-" json:"is_reposted"`
	IsBookmarked bool  `gorm:"-" json:"is_bookmarked"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Poll is the voting sub-structure attached to a poll post. Length is
// days+hours+minutes, validated at creation to total at most 7 days.
type Poll struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;uniqueIndex" json:"post_id"`

	LengthDays    int `gorm:"not null;default:0" json:"length_days"`
	LengthHours   int `gorm:"not null;default:0" json:"length_hours"`
	LengthMinutes int `gorm:"not null;default:0" json:"length_minutes"`

	Options []PollOption `gorm:"foreignKey:PollID" json:"options"`

	// Per-viewer view state, populated at read time
	IsVotingOff bool `gorm:"-" json:"is_voting_off"`

	CreatedAt time.Time `json:"created_at"`
}

// Length returns the poll duration
func (p *Poll) Length() time.Duration {
	return time.Duration(p.LengthDays)*24*time.Hour +
		time.Duration(p.LengthHours)*time.Hour +
		time.Duration(p.LengthMinutes)*time.Minute
}

// PollOption is a single poll choice. VoteCount is maintained
// incrementally inside the vote transaction.
type PollOption struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PollID string `gorm:"not null;uniqueIndex:idx_poll_options_poll_idx" json:"poll_id"`
	Idx    int    `gorm:"not null;uniqueIndex:idx_poll_options_poll_idx" json:"index"`

	Label     string `gorm:"not null" json:"label"`
	VoteCount int64  `gorm:"not null;default:0" json:"vote_count"`

	// Per-viewer view state, populated at read time
	IsLoggedInUserVoted bool `gorm:"-" json:"is_logged_in_user_voted"`

	CreatedAt time.Time `json:"created_at"`
}

// PollVote records a user's vote. One vote per (post, user).
type PollVote struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;uniqueIndex:idx_poll_votes_post_user" json:"post_id"`
	UserID string `gorm:"not null;uniqueIndex:idx_poll_votes_post_user;index" json:"user_id"`

	OptionIndex int `gorm:"not null" json:"option_index"`

	CreatedAt time.Time `json:"created_at"`
}

// PromoPost is promotional content injected into composed feeds at a
// fixed cadence. It carries no reply/like/repost semantics.
type PromoPost struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	Sponsor string `gorm:"not null" json:"sponsor"`
	Body    string `gorm:"type:text" json:"body"`

	ImageURL  string `json:"image_url,omitempty"`
	TargetURL string `json:"target_url,omitempty"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (p *Poll) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (o *PollOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = generateUUID()
	}
	return nil
}

func (v *PollVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	return nil
}

func (p *PromoPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

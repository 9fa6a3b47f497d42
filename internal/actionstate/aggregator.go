package actionstate

import (
	"github.com/larkhq/backend/internal/models"
	"gorm.io/gorm"
)

// State holds the per-viewer engagement flags and the viewer-independent
// aggregate counts for a single post.
type State struct {
	PostID string `json:"post_id"`

	IsLiked      bool `json:"is_liked"`
	IsReposted   bool `json:"is_reposted"`
	IsBookmarked bool `json:"is_bookmarked"`

	LikeCount   int64 `json:"like_count"`
	RepostCount int64 `json:"repost_count"`
	ReplyCount  int64 `json:"reply_count"`
	ViewCount   int64 `json:"view_count"`
}

// Aggregator batches engagement state reads for sets of posts. Counts
// are always derived from the join tables at read time; nothing here
// writes.
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator creates an aggregator over the given database handle
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

type countRow struct {
	PostID string
	Count  int64
}

// GetState returns one entry per distinct post id in postIDs. Duplicate
// ids are collapsed before querying. Every requested id gets an entry,
// all-false / zero when no engagement exists or the post is unknown.
// viewerID may be empty (anonymous): flags stay false, counts are the
// same as for any other viewer.
func (a *Aggregator) GetState(viewerID string, postIDs []string) (map[string]*State, error) {
	ids := dedup(postIDs)

	states := make(map[string]*State, len(ids))
	for _, id := range ids {
		states[id] = &State{PostID: id}
	}

	if len(ids) == 0 {
		return states, nil
	}

	// Aggregate counts, one grouped query per source table
	var rows []countRow

	err := a.db.Model(&models.Like{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		states[r.PostID].LikeCount = r.Count
	}

	rows = rows[:0]
	err = a.db.Model(&models.Repost{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		states[r.PostID].RepostCount = r.Count
	}

	rows = rows[:0]
	err = a.db.Model(&models.PostStat{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ? AND viewed = ?", ids, true).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		states[r.PostID].ViewCount = r.Count
	}

	// Replies are posts whose parent is in the set
	rows = rows[:0]
	err = a.db.Model(&models.Post{}).
		Select("parent_post_id as post_id, COUNT(*) as count").
		Where("parent_post_id IN ?", ids).
		Group("parent_post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		states[r.PostID].ReplyCount = r.Count
	}

	// Per-viewer flags via membership queries
	if viewerID != "" {
		var liked []string
		err = a.db.Model(&models.Like{}).
			Where("post_id IN ? AND user_id = ?", ids, viewerID).
			Pluck("post_id", &liked).Error
		if err != nil {
			return nil, err
		}
		for _, id := range liked {
			states[id].IsLiked = true
		}

		var reposted []string
		err = a.db.Model(&models.Repost{}).
			Where("post_id IN ? AND user_id = ?", ids, viewerID).
			Pluck("post_id", &reposted).Error
		if err != nil {
			return nil, err
		}
		for _, id := range reposted {
			states[id].IsReposted = true
		}

		var bookmarked []string
		err = a.db.Model(&models.Bookmark{}).
			Where("post_id IN ? AND user_id = ?", ids, viewerID).
			Pluck("post_id", &bookmarked).Error
		if err != nil {
			return nil, err
		}
		for _, id := range bookmarked {
			states[id].IsBookmarked = true
		}
	}

	return states, nil
}

// GetStateForPost is the single-post convenience form
func (a *Aggregator) GetStateForPost(viewerID, postID string) (*State, error) {
	states, err := a.GetState(viewerID, []string{postID})
	if err != nil {
		return nil, err
	}
	return states[postID], nil
}

// ApplyToPosts copies aggregated state onto the transient post fields.
// Posts whose id has no entry are left at their zero values.
func ApplyToPosts(posts []*models.Post, states map[string]*State) {
	for _, post := range posts {
		state, ok := states[post.ID]
		if !ok {
			continue
		}
		post.LikeCount = state.LikeCount
		post.RepostCount = state.RepostCount
		post.ReplyCount = state.ReplyCount
		post.ViewCount = state.ViewCount
		post.IsLiked = state.IsLiked
		post.IsReposted = state.IsReposted
		post.IsBookmarked = state.IsBookmarked
	}
}

// Decorate fetches and applies state for a slice of posts in one call
func (a *Aggregator) Decorate(viewerID string, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	states, err := a.GetState(viewerID, ids)
	if err != nil {
		return err
	}
	ApplyToPosts(posts, states)
	return nil
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

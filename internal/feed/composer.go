package feed

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/larkhq/backend/internal/actionstate"
	"github.com/larkhq/backend/internal/cache"
	"github.com/larkhq/backend/internal/logger"
	"github.com/larkhq/backend/internal/models"
	"github.com/larkhq/backend/internal/poll"
	"gorm.io/gorm"
)

// ItemType discriminates the entries of a composed feed page
type ItemType string

const (
	ItemPost   ItemType = "post"
	ItemRepost ItemType = "repost"
	ItemPromo  ItemType = "promo"
)

// Promotional cadence: a promo lands at every 10th output slot
// (0-indexed positions 9, 19, 29, ...) until the pool runs out.
const promoInterval = 10

const promoPoolCacheKey = "feed:promo_pool"
const promoPoolCacheTTL = 5 * time.Minute

// Item is one entry in a composed feed. Exactly one of Post or Promo is
// set; RepostedBy and RepostedAt are set only for repost items.
type Item struct {
	Type ItemType `json:"type"`

	Post       *models.Post      `json:"post,omitempty"`
	RepostedBy *models.User      `json:"reposted_by,omitempty"`
	RepostedAt *time.Time        `json:"reposted_at,omitempty"`
	Promo      *models.PromoPost `json:"promo,omitempty"`

	// sortTime orders the chronological merge: post creation time for
	// organic posts, repost time for repost items.
	sortTime time.Time
}

// Composer builds merged feed pages: organic posts and resolved repost
// views interleaved chronologically, with promotional content spliced
// in at a fixed cadence.
type Composer struct {
	db    *gorm.DB
	agg   *actionstate.Aggregator
	polls *poll.Engine
	redis *cache.RedisClient
}

// NewComposer creates a feed composer. redis may be nil; the promo pool
// is then read straight from the database on every compose.
func NewComposer(db *gorm.DB, redis *cache.RedisClient) *Composer {
	return &Composer{
		db:    db,
		agg:   actionstate.NewAggregator(db),
		polls: poll.NewEngine(db),
		redis: redis,
	}
}

// Compose builds a feed page for the viewer. viewerID may be empty
// (anonymous): only public posts appear and engagement flags stay
// false. limit bounds the organic item count; promo injection can make
// the returned page longer.
func (c *Composer) Compose(viewerID string, limit int) ([]*Item, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	excluded, err := c.excludedAuthors(viewerID)
	if err != nil {
		return nil, err
	}

	posts, err := c.loadOrganicPosts(viewerID, excluded, limit)
	if err != nil {
		return nil, err
	}

	reposts, err := c.loadReposts(viewerID, excluded, limit)
	if err != nil {
		return nil, err
	}

	merged := mergeChronological(posts, reposts, limit)

	if err := c.decorate(viewerID, merged); err != nil {
		return nil, err
	}

	promos, err := c.promoPool()
	if err != nil {
		// A feed without promos beats no feed
		logger.WarnWithFields("Failed to load promo pool", err)
		promos = nil
	}

	return injectPromos(merged, promos), nil
}

// excludedAuthors returns the author ids whose content never reaches
// this viewer: blocks in either direction plus the viewer's mutes.
func (c *Composer) excludedAuthors(viewerID string) (map[string]bool, error) {
	excluded := make(map[string]bool)
	if viewerID == "" {
		return excluded, nil
	}

	var outbound []string
	err := c.db.Model(&models.RelationshipEdge{}).
		Where("from_user_id = ? AND kind IN ?", viewerID, []models.EdgeKind{models.EdgeBlock, models.EdgeMute}).
		Pluck("to_user_id", &outbound).Error
	if err != nil {
		return nil, err
	}
	for _, id := range outbound {
		excluded[id] = true
	}

	var inbound []string
	err = c.db.Model(&models.RelationshipEdge{}).
		Where("to_user_id = ? AND kind = ?", viewerID, models.EdgeBlock).
		Pluck("from_user_id", &inbound).Error
	if err != nil {
		return nil, err
	}
	for _, id := range inbound {
		excluded[id] = true
	}

	return excluded, nil
}

// followedIDs returns the set of user ids the viewer follows
func (c *Composer) followedIDs(viewerID string) ([]string, error) {
	var ids []string
	err := c.db.Model(&models.RelationshipEdge{}).
		Where("from_user_id = ? AND kind = ?", viewerID, models.EdgeFollow).
		Pluck("to_user_id", &ids).Error
	return ids, err
}

func (c *Composer) loadOrganicPosts(viewerID string, excluded map[string]bool, limit int) ([]*models.Post, error) {
	query := c.db.Model(&models.Post{}).
		Preload("User").
		Preload("Poll").
		Preload("Poll.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx ASC")
		}).
		Where("parent_post_id IS NULL").
		Where("scheduled_at IS NULL OR scheduled_at <= ?", time.Now().UTC())

	if viewerID == "" {
		query = query.Where("visibility = ?", models.VisibilityPublic)
	} else {
		followed, err := c.followedIDs(viewerID)
		if err != nil {
			return nil, err
		}
		followed = append(followed, viewerID)
		query = query.Where(
			"visibility = ? OR (visibility = ? AND user_id IN ?)",
			models.VisibilityPublic, models.VisibilityFollowers, followed,
		)
	}

	var posts []*models.Post
	err := query.Order("created_at DESC").Limit(limit).Find(&posts).Error
	if err != nil {
		return nil, err
	}

	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if !excluded[p.UserID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Composer) loadReposts(viewerID string, excluded map[string]bool, limit int) ([]*models.Repost, error) {
	var reposts []*models.Repost
	err := c.db.Model(&models.Repost{}).
		Preload("User").
		Preload("Post").
		Preload("Post.User").
		Preload("Post.Poll").
		Preload("Post.Poll.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("idx ASC")
		}).
		Order("created_at DESC").
		Limit(limit).
		Find(&reposts).Error
	if err != nil {
		return nil, err
	}

	out := make([]*models.Repost, 0, len(reposts))
	for _, r := range reposts {
		// Drop reposts by or of excluded users, reposts of deleted
		// posts, and non-public targets the viewer cannot see
		if excluded[r.UserID] || r.Post.ID == "" || excluded[r.Post.UserID] {
			continue
		}
		if r.Post.Visibility != models.VisibilityPublic && r.Post.UserID != viewerID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// mergeChronological interleaves organic posts and repost views by
// descending sort time: creation time for posts, repost time for
// reposts. Both inputs arrive already sorted.
func mergeChronological(posts []*models.Post, reposts []*models.Repost, limit int) []*Item {
	items := make([]*Item, 0, limit)
	pi, ri := 0, 0
	for len(items) < limit && (pi < len(posts) || ri < len(reposts)) {
		takePost := ri >= len(reposts) ||
			(pi < len(posts) && !posts[pi].CreatedAt.Before(reposts[ri].CreatedAt))
		if takePost {
			items = append(items, &Item{
				Type:     ItemPost,
				Post:     posts[pi],
				sortTime: posts[pi].CreatedAt,
			})
			pi++
		} else {
			r := reposts[ri]
			repostedAt := r.CreatedAt
			target := r.Post
			items = append(items, &Item{
				Type:       ItemRepost,
				Post:       &target,
				RepostedBy: &r.User,
				RepostedAt: &repostedAt,
				sortTime:   r.CreatedAt,
			})
			ri++
		}
	}
	return items
}

// decorate fills engagement state and per-viewer poll state for every
// post on the page in two batched reads.
func (c *Composer) decorate(viewerID string, items []*Item) error {
	posts := make([]*models.Post, 0, len(items))
	for _, it := range items {
		if it.Post != nil {
			posts = append(posts, it.Post)
		}
	}
	if len(posts) == 0 {
		return nil
	}

	if err := c.agg.Decorate(viewerID, posts); err != nil {
		return err
	}
	return c.polls.DecoratePolls(viewerID, posts)
}

// promoPool loads active promotional posts, through the redis cache
// when one is wired.
func (c *Composer) promoPool() ([]models.PromoPost, error) {
	ctx := context.Background()

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, promoPoolCacheKey)
		if err == nil {
			var promos []models.PromoPost
			if jsonErr := json.Unmarshal([]byte(cached), &promos); jsonErr == nil {
				return promos, nil
			}
		} else if !cache.IsNil(err) {
			logger.WarnWithFields("Promo pool cache read failed", err)
		}
	}

	var promos []models.PromoPost
	err := c.db.Where("is_active = ?", true).Find(&promos).Error
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		if payload, jsonErr := json.Marshal(promos); jsonErr == nil {
			if err := c.redis.SetEx(ctx, promoPoolCacheKey, payload, promoPoolCacheTTL); err != nil {
				logger.WarnWithFields("Promo pool cache write failed", err)
			}
		}
	}

	return promos, nil
}

// injectPromos shuffles the promo pool once and splices promos into the
// page so they land at 0-indexed positions 9, 19, 29, ... A promo is
// never appended after the last organic item, and the pool is consumed
// at most once per compose.
func injectPromos(items []*Item, promos []models.PromoPost) []*Item {
	if len(promos) > 0 {
		promos = append([]models.PromoPost(nil), promos...)
		rand.Shuffle(len(promos), func(i, j int) {
			promos[i], promos[j] = promos[j], promos[i]
		})
	}

	out := make([]*Item, 0, len(items)+len(items)/promoInterval+1)
	next := 0
	for _, it := range items {
		if next < len(promos) && len(out)%promoInterval == promoInterval-1 {
			promo := promos[next]
			next++
			out = append(out, &Item{Type: ItemPromo, Promo: &promo})
		}
		out = append(out, it)
	}
	return out
}

package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func makeItems(n int) []*Item {
	items := make([]*Item, n)
	for i := range items {
		items[i] = &Item{Type: ItemPost, Post: &models.Post{ID: fmt.Sprintf("post-%d", i)}}
	}
	return items
}

func makePromos(n int) []models.PromoPost {
	promos := make([]models.PromoPost, n)
	for i := range promos {
		promos[i] = models.PromoPost{ID: fmt.Sprintf("promo-%d", i), Sponsor: "sponsor"}
	}
	return promos
}

func TestInjectPromosCadence(t *testing.T) {
	out := injectPromos(makeItems(23), makePromos(5))

	// 23 organic items leave room for exactly two promo slots
	assert.Len(t, out, 25)
	seen := map[string]int{}
	for i, item := range out {
		if i == 9 || i == 19 {
			assert.Equal(t, ItemPromo, item.Type, "index %d", i)
			seen[item.Promo.ID]++
		} else {
			assert.NotEqual(t, ItemPromo, item.Type, "index %d", i)
		}
	}
	assert.Len(t, seen, 2, "each slot uses a distinct promo from one shuffle")
}

func TestInjectPromosShortPage(t *testing.T) {
	out := injectPromos(makeItems(8), makePromos(5))
	assert.Len(t, out, 8)
	for _, item := range out {
		assert.NotEqual(t, ItemPromo, item.Type)
	}
}

func TestInjectPromosPoolExhaustion(t *testing.T) {
	out := injectPromos(makeItems(23), makePromos(1))
	assert.Len(t, out, 24)
	assert.Equal(t, ItemPromo, out[9].Type)
	for i, item := range out {
		if i != 9 {
			assert.NotEqual(t, ItemPromo, item.Type, "index %d", i)
		}
	}
}

func TestInjectPromosEmptyPool(t *testing.T) {
	out := injectPromos(makeItems(23), nil)
	assert.Len(t, out, 23)
}

func TestInjectPromosDoesNotMutatePool(t *testing.T) {
	promos := makePromos(5)
	original := make([]string, len(promos))
	for i, p := range promos {
		original[i] = p.ID
	}
	injectPromos(makeItems(40), promos)
	for i, p := range promos {
		assert.Equal(t, original[i], p.ID)
	}
}

type ComposerTestSuite struct {
	suite.Suite
	db       *gorm.DB
	composer *Composer
	now      time.Time
}

func (s *ComposerTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.composer = NewComposer(s.db, nil)
	s.now = time.Now().UTC()
}

func (s *ComposerTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *ComposerTestSuite) createPostAt(author *models.User, body string, at time.Time) *models.Post {
	post := &models.Post{
		UserID:    author.ID,
		Kind:      models.PostKindText,
		Body:      body,
		CreatedAt: at,
	}
	s.Require().NoError(s.db.Create(post).Error)
	return post
}

func (s *ComposerTestSuite) follow(from, to *models.User) {
	s.Require().NoError(s.db.Create(&models.RelationshipEdge{
		FromUserID: from.ID, ToUserID: to.ID, Kind: models.EdgeFollow,
	}).Error)
}

func (s *ComposerTestSuite) TestChronologicalMergeOfReposts() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	viewer := s.createUser("viewer")

	old := s.createPostAt(alice, "old post", s.now.Add(-3*time.Hour))
	mid := s.createPostAt(bob, "mid post", s.now.Add(-2*time.Hour))

	// Bob reposts the old post an hour ago; the repost view sorts by
	// repost time, ahead of both organic posts
	repost := &models.Repost{PostID: old.ID, UserID: bob.ID, CreatedAt: s.now.Add(-time.Hour)}
	s.Require().NoError(s.db.Create(repost).Error)

	items, err := s.composer.Compose(viewer.ID, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 3)

	s.Equal(ItemRepost, items[0].Type)
	s.Equal(old.ID, items[0].Post.ID)
	s.Require().NotNil(items[0].RepostedBy)
	s.Equal(bob.ID, items[0].RepostedBy.ID)

	s.Equal(ItemPost, items[1].Type)
	s.Equal(mid.ID, items[1].Post.ID)
	s.Equal(ItemPost, items[2].Type)
	s.Equal(old.ID, items[2].Post.ID)
}

func (s *ComposerTestSuite) TestBlockedAuthorsExcludedBothDirections() {
	viewer := s.createUser("viewer")
	blockedByViewer := s.createUser("blocked")
	blocker := s.createUser("blocker")
	friendly := s.createUser("friendly")

	s.createPostAt(blockedByViewer, "you blocked me", s.now.Add(-time.Hour))
	s.createPostAt(blocker, "i blocked you", s.now.Add(-2*time.Hour))
	keep := s.createPostAt(friendly, "visible", s.now.Add(-3*time.Hour))

	s.Require().NoError(s.db.Create(&models.RelationshipEdge{
		FromUserID: viewer.ID, ToUserID: blockedByViewer.ID, Kind: models.EdgeBlock,
	}).Error)
	s.Require().NoError(s.db.Create(&models.RelationshipEdge{
		FromUserID: blocker.ID, ToUserID: viewer.ID, Kind: models.EdgeBlock,
	}).Error)

	items, err := s.composer.Compose(viewer.ID, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(keep.ID, items[0].Post.ID)
}

func (s *ComposerTestSuite) TestMutedAuthorsExcluded() {
	viewer := s.createUser("viewer")
	muted := s.createUser("muted")
	other := s.createUser("other")

	s.createPostAt(muted, "muted away", s.now.Add(-time.Hour))
	keep := s.createPostAt(other, "still here", s.now.Add(-2*time.Hour))

	s.Require().NoError(s.db.Create(&models.RelationshipEdge{
		FromUserID: viewer.ID, ToUserID: muted.ID, Kind: models.EdgeMute,
	}).Error)

	// Mute is one-way: muted still sees the viewer's world
	items, err := s.composer.Compose(viewer.ID, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(keep.ID, items[0].Post.ID)

	items, err = s.composer.Compose(muted.ID, 50)
	s.Require().NoError(err)
	s.Len(items, 2)
}

func (s *ComposerTestSuite) TestFollowersOnlyVisibility() {
	author := s.createUser("author")
	follower := s.createUser("follower")
	stranger := s.createUser("stranger")
	s.follow(follower, author)

	post := s.createPostAt(author, "for followers", s.now.Add(-time.Hour))
	s.Require().NoError(s.db.Model(post).Update("visibility", models.VisibilityFollowers).Error)

	items, err := s.composer.Compose(follower.ID, 50)
	s.Require().NoError(err)
	s.Len(items, 1)

	items, err = s.composer.Compose(stranger.ID, 50)
	s.Require().NoError(err)
	s.Empty(items)

	// Anonymous viewers only ever see public posts
	items, err = s.composer.Compose("", 50)
	s.Require().NoError(err)
	s.Empty(items)

	// The author always sees their own posts
	items, err = s.composer.Compose(author.ID, 50)
	s.Require().NoError(err)
	s.Len(items, 1)
}

func (s *ComposerTestSuite) TestScheduledPostsHeldBack() {
	author := s.createUser("author")
	viewer := s.createUser("viewer")

	future := s.now.Add(time.Hour)
	scheduled := &models.Post{
		UserID:      author.ID,
		Kind:        models.PostKindText,
		Body:        "not yet",
		ScheduledAt: &future,
	}
	s.Require().NoError(s.db.Create(scheduled).Error)
	s.createPostAt(author, "live", s.now.Add(-time.Minute))

	items, err := s.composer.Compose(viewer.ID, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("live", items[0].Post.Body)
}

func (s *ComposerTestSuite) TestRepliesStayOutOfFeed() {
	author := s.createUser("author")
	viewer := s.createUser("viewer")

	parent := s.createPostAt(author, "parent", s.now.Add(-2*time.Hour))
	reply := &models.Post{
		UserID:       viewer.ID,
		Kind:         models.PostKindText,
		Body:         "reply",
		ParentPostID: &parent.ID,
		CreatedAt:    s.now.Add(-time.Hour),
	}
	s.Require().NoError(s.db.Create(reply).Error)

	items, err := s.composer.Compose(viewer.ID, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(parent.ID, items[0].Post.ID)
	s.EqualValues(1, items[0].Post.ReplyCount)
}

func (s *ComposerTestSuite) TestPromoInjectionAcrossFullPage() {
	author := s.createUser("author")
	viewer := s.createUser("viewer")

	for i := 0; i < 23; i++ {
		s.createPostAt(author, fmt.Sprintf("post %d", i), s.now.Add(-time.Duration(i)*time.Minute))
	}
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.db.Create(&models.PromoPost{
			Sponsor:  fmt.Sprintf("sponsor-%d", i),
			Body:     "buy things",
			IsActive: true,
		}).Error)
	}
	// Inactive promos never enter the pool
	s.Require().NoError(s.db.Create(&models.PromoPost{Sponsor: "dormant", IsActive: false}).Error)

	items, err := s.composer.Compose(viewer.ID, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 25)

	for i, item := range items {
		if i == 9 || i == 19 {
			s.Equal(ItemPromo, item.Type, "index %d", i)
			s.NotEqual("dormant", item.Promo.Sponsor)
		} else {
			s.Equal(ItemPost, item.Type, "index %d", i)
		}
	}
}

func (s *ComposerTestSuite) TestEngagementStateDecorated() {
	author := s.createUser("author")
	viewer := s.createUser("viewer")

	post := s.createPostAt(author, "like me", s.now.Add(-time.Hour))
	s.Require().NoError(s.db.Create(&models.Like{PostID: post.ID, UserID: viewer.ID}).Error)

	items, err := s.composer.Compose(viewer.ID, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.True(items[0].Post.IsLiked)
	s.EqualValues(1, items[0].Post.LikeCount)

	items, err = s.composer.Compose("", 50)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.False(items[0].Post.IsLiked)
	s.EqualValues(1, items[0].Post.LikeCount)
}

func TestComposerTestSuite(t *testing.T) {
	suite.Run(t, new(ComposerTestSuite))
}

package actionstate

import (
	"testing"

	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/models"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type AggregatorTestSuite struct {
	suite.Suite
	db  *gorm.DB
	agg *Aggregator
}

func (s *AggregatorTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.agg = NewAggregator(s.db)
}

func (s *AggregatorTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *AggregatorTestSuite) createPost(author *models.User) *models.Post {
	post := &models.Post{
		UserID: author.ID,
		Kind:   models.PostKindText,
		Body:   "hello from " + author.Username,
	}
	s.Require().NoError(s.db.Create(post).Error)
	return post
}

func (s *AggregatorTestSuite) TestDeduplicatesRequestedIDs() {
	author := s.createUser("author")
	post := s.createPost(author)

	states, err := s.agg.GetState("", []string{post.ID, post.ID, post.ID, ""})
	s.Require().NoError(err)
	s.Len(states, 1)
	s.Contains(states, post.ID)
}

func (s *AggregatorTestSuite) TestUnknownPostGetsZeroEntry() {
	states, err := s.agg.GetState("", []string{"11111111-1111-1111-1111-111111111111"})
	s.Require().NoError(err)
	s.Require().Len(states, 1)

	state := states["11111111-1111-1111-1111-111111111111"]
	s.Require().NotNil(state)
	s.False(state.IsLiked)
	s.False(state.IsReposted)
	s.False(state.IsBookmarked)
	s.Zero(state.LikeCount)
	s.Zero(state.RepostCount)
	s.Zero(state.ReplyCount)
	s.Zero(state.ViewCount)
}

func (s *AggregatorTestSuite) TestCountsAreViewerIndependent() {
	author := s.createUser("author")
	post := s.createPost(author)

	for _, name := range []string{"fan1", "fan2", "fan3"} {
		fan := s.createUser(name)
		s.Require().NoError(s.db.Create(&models.Repost{PostID: post.ID, UserID: fan.ID}).Error)
	}

	anon, err := s.agg.GetState("", []string{post.ID})
	s.Require().NoError(err)
	s.EqualValues(3, anon[post.ID].RepostCount)
	s.False(anon[post.ID].IsReposted)

	var fan1 models.User
	s.Require().NoError(s.db.Where("username = ?", "fan1").First(&fan1).Error)

	asFan, err := s.agg.GetState(fan1.ID, []string{post.ID})
	s.Require().NoError(err)
	s.EqualValues(3, asFan[post.ID].RepostCount)
	s.True(asFan[post.ID].IsReposted)
}

func (s *AggregatorTestSuite) TestLikeRepostBookmarkFlags() {
	author := s.createUser("author")
	viewer := s.createUser("viewer")
	liked := s.createPost(author)
	bookmarked := s.createPost(author)
	untouched := s.createPost(author)

	s.Require().NoError(s.db.Create(&models.Like{PostID: liked.ID, UserID: viewer.ID}).Error)
	s.Require().NoError(s.db.Create(&models.Bookmark{PostID: bookmarked.ID, UserID: viewer.ID}).Error)

	states, err := s.agg.GetState(viewer.ID, []string{liked.ID, bookmarked.ID, untouched.ID})
	s.Require().NoError(err)

	s.True(states[liked.ID].IsLiked)
	s.False(states[liked.ID].IsBookmarked)
	s.True(states[bookmarked.ID].IsBookmarked)
	s.False(states[bookmarked.ID].IsLiked)
	s.False(states[untouched.ID].IsLiked)
	s.False(states[untouched.ID].IsReposted)
	s.False(states[untouched.ID].IsBookmarked)
}

func (s *AggregatorTestSuite) TestReplyAndViewCounts() {
	author := s.createUser("author")
	reader := s.createUser("reader")
	post := s.createPost(author)

	for i := 0; i < 2; i++ {
		reply := &models.Post{
			UserID:       reader.ID,
			Kind:         models.PostKindText,
			Body:         "reply",
			ParentPostID: &post.ID,
		}
		s.Require().NoError(s.db.Create(reply).Error)
	}

	s.Require().NoError(s.db.Create(&models.PostStat{
		PostID: post.ID,
		UserID: reader.ID,
		Viewed: true,
	}).Error)
	// A stat row without the viewed flag does not count as a view
	s.Require().NoError(s.db.Create(&models.PostStat{
		PostID:      post.ID,
		UserID:      author.ID,
		LinkClicked: true,
	}).Error)

	states, err := s.agg.GetState("", []string{post.ID})
	s.Require().NoError(err)
	s.EqualValues(2, states[post.ID].ReplyCount)
	s.EqualValues(1, states[post.ID].ViewCount)
}

func (s *AggregatorTestSuite) TestEmptyInput() {
	states, err := s.agg.GetState("viewer", nil)
	s.Require().NoError(err)
	s.Empty(states)
}

func (s *AggregatorTestSuite) TestDecoratePopulatesTransientFields() {
	author := s.createUser("author")
	viewer := s.createUser("viewer")
	post := s.createPost(author)

	s.Require().NoError(s.db.Create(&models.Like{PostID: post.ID, UserID: viewer.ID}).Error)

	posts := []*models.Post{post}
	s.Require().NoError(s.agg.Decorate(viewer.ID, posts))

	s.EqualValues(1, posts[0].LikeCount)
	s.True(posts[0].IsLiked)
}

func TestAggregatorTestSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

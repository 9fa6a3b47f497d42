package engagement

import (
	"testing"

	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/models"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type EngagementManagerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	manager *Manager
	author  *models.User
	viewer  *models.User
	post    *models.Post
}

func (s *EngagementManagerTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.manager = NewManager(s.db)
	s.author = s.createUser("author")
	s.viewer = s.createUser("viewer")

	s.post = &models.Post{UserID: s.author.ID, Kind: models.PostKindText, Body: "hello"}
	s.Require().NoError(s.db.Create(s.post).Error)
}

func (s *EngagementManagerTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *EngagementManagerTestSuite) TestAddLikeReturnsRefreshedState() {
	state, err := s.manager.AddLike(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)
	s.True(state.IsLiked)
	s.EqualValues(1, state.LikeCount)
	s.False(state.IsReposted)
}

// Duplicate likes are arbitrated by the (post_id, user_id) unique
// index, not by application locking, so a second insert loses the
// same way whether it races the first or lands after it. The in-memory
// test database runs on a single connection, so the race itself is
// exercised sequentially here.
func (s *EngagementManagerTestSuite) TestDuplicateLikeConflictsAndCountHolds() {
	_, err := s.manager.AddLike(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)

	_, err = s.manager.AddLike(s.viewer.ID, s.post.ID)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrConflict))

	var count int64
	s.db.Model(&models.Like{}).Where("post_id = ?", s.post.ID).Count(&count)
	s.EqualValues(1, count)
}

func (s *EngagementManagerTestSuite) TestRemoveLike() {
	_, err := s.manager.AddLike(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)

	state, err := s.manager.RemoveLike(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)
	s.False(state.IsLiked)
	s.EqualValues(0, state.LikeCount)
}

func (s *EngagementManagerTestSuite) TestRemoveAbsentLikeIsDomainState() {
	_, err := s.manager.RemoveLike(s.viewer.ID, s.post.ID)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrDomainState))
}

func (s *EngagementManagerTestSuite) TestAddRepostSynthesizesView() {
	view, err := s.manager.AddRepost(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)
	s.Require().NotNil(view.Post)
	s.Require().NotNil(view.RepostedBy)

	s.Equal(s.post.ID, view.Post.ID)
	s.Equal(s.viewer.ID, view.RepostedBy.ID)
	s.False(view.RepostedAt.IsZero())
	s.True(view.Post.IsReposted)
	s.EqualValues(1, view.Post.RepostCount)
}

func (s *EngagementManagerTestSuite) TestRepostCountsAccumulate() {
	for _, name := range []string{"fan1", "fan2"} {
		fan := s.createUser(name)
		_, err := s.manager.AddRepost(fan.ID, s.post.ID)
		s.Require().NoError(err)
	}
	view, err := s.manager.AddRepost(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)
	s.EqualValues(3, view.Post.RepostCount)

	_, err = s.manager.AddRepost(s.viewer.ID, s.post.ID)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrConflict))

	var count int64
	s.db.Model(&models.Repost{}).Where("post_id = ?", s.post.ID).Count(&count)
	s.EqualValues(3, count)
}

func (s *EngagementManagerTestSuite) TestRemoveRepost() {
	_, err := s.manager.AddRepost(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)

	state, err := s.manager.RemoveRepost(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)
	s.False(state.IsReposted)
	s.EqualValues(0, state.RepostCount)
}

func (s *EngagementManagerTestSuite) TestBookmarkMarksStatFlag() {
	state, err := s.manager.AddBookmark(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)
	s.True(state.IsBookmarked)

	var stat models.PostStat
	s.Require().NoError(s.db.Where("post_id = ? AND user_id = ?", s.post.ID, s.viewer.ID).First(&stat).Error)
	s.True(stat.BookmarkedFromPost)
}

func (s *EngagementManagerTestSuite) TestBookmarkIsPerViewer() {
	_, err := s.manager.AddBookmark(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)

	other := s.createUser("other")
	state, err := s.manager.AddLike(other.ID, s.post.ID)
	s.Require().NoError(err)
	s.False(state.IsBookmarked)
}

func (s *EngagementManagerTestSuite) TestRemoveBookmark() {
	_, err := s.manager.AddBookmark(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)

	state, err := s.manager.RemoveBookmark(s.viewer.ID, s.post.ID)
	s.Require().NoError(err)
	s.False(state.IsBookmarked)

	_, err = s.manager.RemoveBookmark(s.viewer.ID, s.post.ID)
	s.True(apperr.IsCode(err, apperr.ErrDomainState))
}

func (s *EngagementManagerTestSuite) TestUnknownPost() {
	_, err := s.manager.AddLike(s.viewer.ID, "55555555-5555-5555-5555-555555555555")
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrNotFound))
}

func (s *EngagementManagerTestSuite) TestAnonymousViewer() {
	_, err := s.manager.AddLike("", s.post.ID)
	s.True(apperr.IsCode(err, apperr.ErrUnauthenticated))

	_, err = s.manager.RemoveRepost("", s.post.ID)
	s.True(apperr.IsCode(err, apperr.ErrUnauthenticated))
}

func TestEngagementManagerTestSuite(t *testing.T) {
	suite.Run(t, new(EngagementManagerTestSuite))
}

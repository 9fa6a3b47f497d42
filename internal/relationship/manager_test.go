package relationship

import (
	"testing"

	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/models"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RelationshipManagerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	manager *Manager
	alice   *models.User
	bob     *models.User
}

func (s *RelationshipManagerTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.manager = NewManager(s.db)
	s.alice = s.createUser("alice")
	s.bob = s.createUser("bob")
}

func (s *RelationshipManagerTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *RelationshipManagerTestSuite) edgeCount(from, to string, kind models.EdgeKind) int64 {
	var count int64
	s.db.Model(&models.RelationshipEdge{}).
		Where("from_user_id = ? AND to_user_id = ? AND kind = ?", from, to, kind).
		Count(&count)
	return count
}

func (s *RelationshipManagerTestSuite) TestFollowReturnsDerivedCounts() {
	result, err := s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)
	s.Require().NotNil(result.LoggedInUser)
	s.Require().NotNil(result.TargetUser)
	s.Nil(result.Post)

	s.EqualValues(1, result.LoggedInUser.FollowingCount)
	s.EqualValues(0, result.LoggedInUser.FollowerCount)
	s.EqualValues(1, result.TargetUser.FollowerCount)
	s.True(result.TargetUser.IsFollowing)
	s.False(result.TargetUser.IsBlocking)
}

func (s *RelationshipManagerTestSuite) TestDuplicateFollowConflicts() {
	_, err := s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)

	_, err = s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrConflict))
	s.EqualValues(1, s.edgeCount(s.alice.ID, s.bob.ID, models.EdgeFollow))
}

func (s *RelationshipManagerTestSuite) TestFollowRemovesBlockInSameTransaction() {
	_, err := s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeBlock, nil)
	s.Require().NoError(err)

	_, err = s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)

	s.EqualValues(1, s.edgeCount(s.alice.ID, s.bob.ID, models.EdgeFollow))
	s.EqualValues(0, s.edgeCount(s.alice.ID, s.bob.ID, models.EdgeBlock))
}

func (s *RelationshipManagerTestSuite) TestBlockRemovesFollow() {
	_, err := s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)

	_, err = s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeBlock, nil)
	s.Require().NoError(err)

	s.EqualValues(0, s.edgeCount(s.alice.ID, s.bob.ID, models.EdgeFollow))
	s.EqualValues(1, s.edgeCount(s.alice.ID, s.bob.ID, models.EdgeBlock))
}

func (s *RelationshipManagerTestSuite) TestMuteLeavesFollowAlone() {
	_, err := s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)

	_, err = s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeMute, nil)
	s.Require().NoError(err)

	s.EqualValues(1, s.edgeCount(s.alice.ID, s.bob.ID, models.EdgeFollow))
	s.EqualValues(1, s.edgeCount(s.alice.ID, s.bob.ID, models.EdgeMute))
}

func (s *RelationshipManagerTestSuite) TestBlockIsDirectional() {
	_, err := s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeBlock, nil)
	s.Require().NoError(err)

	// Bob following Alice is untouched by Alice blocking Bob
	_, err = s.manager.Add(s.bob.ID, s.alice.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)
	s.EqualValues(1, s.edgeCount(s.bob.ID, s.alice.ID, models.EdgeFollow))
}

func (s *RelationshipManagerTestSuite) TestRemoveAbsentEdgeIsDomainState() {
	_, err := s.manager.Remove(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrDomainState))
	s.Contains(err.Error(), "not currently following")
}

func (s *RelationshipManagerTestSuite) TestRemoveFollow() {
	_, err := s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)

	result, err := s.manager.Remove(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)
	s.EqualValues(0, result.TargetUser.FollowerCount)
	s.False(result.TargetUser.IsFollowing)
}

func (s *RelationshipManagerTestSuite) TestValidation() {
	_, err := s.manager.Add("", s.bob.ID, models.EdgeFollow, nil)
	s.True(apperr.IsCode(err, apperr.ErrUnauthenticated))

	_, err = s.manager.Add(s.alice.ID, s.alice.ID, models.EdgeFollow, nil)
	s.True(apperr.IsCode(err, apperr.ErrValidation))

	_, err = s.manager.Add(s.alice.ID, "", models.EdgeFollow, nil)
	s.True(apperr.IsCode(err, apperr.ErrValidation))

	_, err = s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeKind("frenemy"), nil)
	s.True(apperr.IsCode(err, apperr.ErrValidation))
}

func (s *RelationshipManagerTestSuite) TestTargetUserMissing() {
	_, err := s.manager.Add(s.alice.ID, "33333333-3333-3333-3333-333333333333", models.EdgeFollow, nil)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrNotFound))
	s.EqualValues(0, s.edgeCount(s.alice.ID, "33333333-3333-3333-3333-333333333333", models.EdgeFollow))
}

func (s *RelationshipManagerTestSuite) TestActingUserMissingIsUnauthenticated() {
	_, err := s.manager.Add("44444444-4444-4444-4444-444444444444", s.bob.ID, models.EdgeFollow, nil)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrUnauthenticated))
}

func (s *RelationshipManagerTestSuite) TestFollowFromPostUpsertsStatAndReturnsPost() {
	post := &models.Post{UserID: s.bob.ID, Kind: models.PostKindText, Body: "follow me"}
	s.Require().NoError(s.db.Create(post).Error)

	result, err := s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, &post.ID)
	s.Require().NoError(err)
	s.Require().NotNil(result.Post)
	s.Nil(result.LoggedInUser)
	s.Equal(post.ID, result.Post.ID)

	var stat models.PostStat
	s.Require().NoError(s.db.Where("post_id = ? AND user_id = ?", post.ID, s.alice.ID).First(&stat).Error)
	s.True(stat.FollowedFromPost)
	s.False(stat.Viewed)

	// A second attribution from the same post keeps one row
	_, err = s.manager.Remove(s.alice.ID, s.bob.ID, models.EdgeFollow, nil)
	s.Require().NoError(err)
	_, err = s.manager.Add(s.alice.ID, s.bob.ID, models.EdgeFollow, &post.ID)
	s.Require().NoError(err)

	var count int64
	s.db.Model(&models.PostStat{}).Where("post_id = ? AND user_id = ?", post.ID, s.alice.ID).Count(&count)
	s.EqualValues(1, count)
}

func TestRelationshipManagerTestSuite(t *testing.T) {
	suite.Run(t, new(RelationshipManagerTestSuite))
}

package poll

import (
	"testing"
	"time"

	"github.com/larkhq/backend/internal/apperr"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type PollEngineTestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *Engine
}

func (s *PollEngineTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.engine = NewEngine(s.db)
}

func (s *PollEngineTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

// createPollPost creates a poll post whose post (and poll) was created
// `age` ago and runs for `hours` hours, with the given option labels.
// A negative age places the post in the future, as a scheduled post.
func (s *PollEngineTestSuite) createPollPost(author *models.User, age time.Duration, hours int, labels ...string) *models.Post {
	createdAt := time.Now().UTC().Add(-age)
	post := &models.Post{
		UserID:    author.ID,
		Kind:      models.PostKindPoll,
		Body:      "which one?",
		CreatedAt: createdAt,
	}
	s.Require().NoError(s.db.Create(post).Error)

	poll := &models.Poll{
		PostID:      post.ID,
		LengthHours: hours,
		CreatedAt:   createdAt,
	}
	s.Require().NoError(s.db.Create(poll).Error)

	for i, label := range labels {
		s.Require().NoError(s.db.Create(&models.PollOption{
			PollID: poll.ID,
			Idx:    i,
			Label:  label,
		}).Error)
	}
	return post
}

func (s *PollEngineTestSuite) TestVoteRecordsAndIncrements() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	post := s.createPollPost(author, time.Minute, 24, "tea", "coffee")

	poll, err := s.engine.SetVote(voter.ID, post.ID, 1)
	s.Require().NoError(err)
	s.Require().Len(poll.Options, 2)

	s.EqualValues(0, poll.Options[0].VoteCount)
	s.EqualValues(1, poll.Options[1].VoteCount)
	s.False(poll.Options[0].IsLoggedInUserVoted)
	s.True(poll.Options[1].IsLoggedInUserVoted)
	// the vote just cast turns voting off for this viewer
	s.True(poll.IsVotingOff)

	var count int64
	s.db.Model(&models.PollVote{}).Where("post_id = ?", post.ID).Count(&count)
	s.EqualValues(1, count)
}

func (s *PollEngineTestSuite) TestVoteAfterExpiryPersistsNothing() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	post := s.createPollPost(author, 2*time.Hour, 1, "tea", "coffee")

	_, err := s.engine.SetVote(voter.ID, post.ID, 0)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrDomainState))
	s.Contains(err.Error(), "poll has expired")

	var votes int64
	s.db.Model(&models.PollVote{}).Where("post_id = ?", post.ID).Count(&votes)
	s.Zero(votes)

	var option models.PollOption
	s.Require().NoError(s.db.Where("idx = ?", 0).First(&option).Error)
	s.Zero(option.VoteCount)
}

func (s *PollEngineTestSuite) TestVoteBeforeStartPersistsNothing() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	// scheduled an hour from now; the window has not opened yet
	post := s.createPollPost(author, -time.Hour, 24, "tea", "coffee")

	_, err := s.engine.SetVote(voter.ID, post.ID, 0)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrDomainState))
	s.Contains(err.Error(), "poll has not started")

	var votes int64
	s.db.Model(&models.PollVote{}).Where("post_id = ?", post.ID).Count(&votes)
	s.Zero(votes)

	var option models.PollOption
	s.Require().NoError(s.db.Where("idx = ?", 0).First(&option).Error)
	s.Zero(option.VoteCount)
}

func (s *PollEngineTestSuite) TestVoteOptionIndexBounds() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	post := s.createPollPost(author, time.Minute, 24, "tea", "coffee")

	// optionIndex == option count is out of range
	_, err := s.engine.SetVote(voter.ID, post.ID, 2)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrDomainState))
	s.Contains(err.Error(), "invalid option index")

	_, err = s.engine.SetVote(voter.ID, post.ID, -1)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrDomainState))
}

func (s *PollEngineTestSuite) TestDuplicateVoteConflicts() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	post := s.createPollPost(author, time.Minute, 24, "tea", "coffee")

	_, err := s.engine.SetVote(voter.ID, post.ID, 0)
	s.Require().NoError(err)

	_, err = s.engine.SetVote(voter.ID, post.ID, 1)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrConflict))

	// The losing vote must not bump any tally
	var option models.PollOption
	s.Require().NoError(s.db.Where("idx = ?", 1).First(&option).Error)
	s.Zero(option.VoteCount)
}

func (s *PollEngineTestSuite) TestAnonymousCannotVote() {
	author := s.createUser("author")
	post := s.createPollPost(author, time.Minute, 24, "tea", "coffee")

	_, err := s.engine.SetVote("", post.ID, 0)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrUnauthenticated))
}

func (s *PollEngineTestSuite) TestVoteOnMissingPost() {
	voter := s.createUser("voter")

	_, err := s.engine.SetVote(voter.ID, "22222222-2222-2222-2222-222222222222", 0)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrNotFound))
}

func (s *PollEngineTestSuite) TestVoteOnPostWithoutPoll() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	post := &models.Post{UserID: author.ID, Kind: models.PostKindText, Body: "no poll here"}
	s.Require().NoError(s.db.Create(post).Error)

	_, err := s.engine.SetVote(voter.ID, post.ID, 0)
	s.Require().Error(err)
	s.True(apperr.IsCode(err, apperr.ErrDomainState))
}

func (s *PollEngineTestSuite) TestVotingOffPerViewer() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	reader := s.createUser("reader")
	post := s.createPollPost(author, time.Minute, 24, "tea", "coffee")

	_, err := s.engine.SetVote(voter.ID, post.ID, 0)
	s.Require().NoError(err)

	// the author never votes on their own poll
	poll, err := s.engine.GetPollState(author.ID, post.ID)
	s.Require().NoError(err)
	s.True(poll.IsVotingOff)

	// a viewer who already voted is done
	poll, err = s.engine.GetPollState(voter.ID, post.ID)
	s.Require().NoError(err)
	s.True(poll.IsVotingOff)

	// anyone else can still vote while the window is open
	poll, err = s.engine.GetPollState(reader.ID, post.ID)
	s.Require().NoError(err)
	s.False(poll.IsVotingOff)

	poll, err = s.engine.GetPollState("", post.ID)
	s.Require().NoError(err)
	s.False(poll.IsVotingOff)
}

func (s *PollEngineTestSuite) TestDecoratePollsBatchesViewerState() {
	author := s.createUser("author")
	voter := s.createUser("voter")
	open := s.createPollPost(author, time.Minute, 24, "tea", "coffee")
	closed := s.createPollPost(author, 2*time.Hour, 1, "cats", "dogs")

	_, err := s.engine.SetVote(voter.ID, open.ID, 0)
	s.Require().NoError(err)

	var posts []*models.Post
	s.Require().NoError(s.db.Preload("Poll").Preload("Poll.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).Order("created_at ASC").Find(&posts).Error)
	s.Require().Len(posts, 2)

	s.Require().NoError(s.engine.DecoratePolls(voter.ID, posts))

	for _, p := range posts {
		switch p.ID {
		case open.ID:
			// open, but this viewer already voted
			s.True(p.Poll.IsVotingOff)
			s.True(p.Poll.Options[0].IsLoggedInUserVoted)
			s.False(p.Poll.Options[1].IsLoggedInUserVoted)
		case closed.ID:
			s.True(p.Poll.IsVotingOff)
			s.False(p.Poll.Options[0].IsLoggedInUserVoted)
		}
	}

	// a viewer with no votes sees the open poll as votable
	reader := s.createUser("reader")
	s.Require().NoError(s.db.Preload("Poll").Preload("Poll.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).Order("created_at ASC").Find(&posts).Error)
	s.Require().NoError(s.engine.DecoratePolls(reader.ID, posts))

	for _, p := range posts {
		switch p.ID {
		case open.ID:
			s.False(p.Poll.IsVotingOff)
			s.False(p.Poll.Options[0].IsLoggedInUserVoted)
		case closed.ID:
			s.True(p.Poll.IsVotingOff)
		}
	}
}

func TestPollEngineTestSuite(t *testing.T) {
	suite.Run(t, new(PollEngineTestSuite))
}

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength(1, 0, 0))
	assert.NoError(t, ValidateLength(0, 0, 5))
	assert.NoError(t, ValidateLength(7, 0, 0))

	assert.Error(t, ValidateLength(0, 0, 0))
	assert.Error(t, ValidateLength(-1, 0, 30))
	assert.Error(t, ValidateLength(0, -2, 0))
	assert.Error(t, ValidateLength(7, 0, 1))

	err := ValidateLength(8, 0, 0)
	assert.True(t, apperr.IsCode(err, apperr.ErrValidation))
}

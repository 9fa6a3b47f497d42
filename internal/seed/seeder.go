package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/larkhq/backend/internal/logger"
	"github.com/larkhq/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating posts...")
	posts, err := s.seedPosts(users, 300)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	log("Creating poll posts...")
	if err := s.seedPollPosts(users, 20); err != nil {
		return fmt.Errorf("failed to seed poll posts: %w", err)
	}

	log("Creating relationships...")
	if err := s.seedRelationships(users); err != nil {
		return fmt.Errorf("failed to seed relationships: %w", err)
	}

	log("Creating engagement...")
	if err := s.seedEngagement(users, posts); err != nil {
		return fmt.Errorf("failed to seed engagement: %w", err)
	}

	log("Creating promos...")
	if err := s.seedPromos(8); err != nil {
		return fmt.Errorf("failed to seed promos: %w", err)
	}

	return nil
}

// SeedTest seeds the test database with minimal, stable data
func (s *Seeder) SeedTest() error {
	testUserSpecs := []struct {
		username    string
		email       string
		displayName string
	}{
		{"alice", "alice@example.com", "Alice Smith"},
		{"bob", "bob@example.com", "Bob Johnson"},
		{"charlie", "charlie@example.com", "Charlie Brown"},
	}

	var users []models.User
	for _, spec := range testUserSpecs {
		var user models.User
		err := s.db.Where("username = ? OR email = ?", spec.username, spec.email).First(&user).Error
		if err == nil {
			users = append(users, user)
			continue
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hashedPasswordStr := string(hashedPassword)

		user = models.User{
			Email:         spec.email,
			Username:      spec.username,
			DisplayName:   spec.displayName,
			PasswordHash:  &hashedPasswordStr,
			EmailVerified: true,
			AvatarURL:     fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", spec.username),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", spec.username, err)
		}
		users = append(users, user)
	}

	if _, err := s.seedPosts(users, 10); err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	if err := s.seedPromos(2); err != nil {
		return fmt.Errorf("failed to seed promos: %w", err)
	}
	return nil
}

// Clean removes all seed data (use with caution!)
func (s *Seeder) Clean() error {
	// Delete in reverse order of dependencies
	tables := []string{
		"poll_votes",
		"poll_options",
		"polls",
		"likes",
		"reposts",
		"bookmarks",
		"post_stats",
		"relationship_edges",
		"promo_posts",
		"posts",
		"users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

// seedUsers creates users with realistic data
func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	var users []models.User

	var seedUserCount int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.com'").Count(&seedUserCount)
	if seedUserCount >= int64(count) {
		if err := s.db.Find(&users).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing users, skipping creation",
			zap.Int("total_users", len(users)))
		return users, nil
	}

	for i := 0; i < count; i++ {
		username := gofakeit.Username()
		email := gofakeit.Email()

		// Ensure unique username/email
		var existing models.User
		for {
			if err := s.db.Where("username = ? OR email = ?", username, email).First(&existing).Error; err == gorm.ErrRecordNotFound {
				break
			}
			username = gofakeit.Username()
			email = gofakeit.Email()
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hashedPasswordStr := string(hashedPassword)

		user := models.User{
			Email:         email,
			Username:      username,
			DisplayName:   gofakeit.Name(),
			Bio:           gofakeit.HipsterSentence(),
			PasswordHash:  &hashedPasswordStr,
			EmailVerified: true,
			AvatarURL:     fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
		}

		lastActive := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		user.LastActiveAt = &lastActive

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}

	logger.Log.Info("Created seed users", zap.Int("new_users", count))
	return users, nil
}

// seedPosts creates a mix of text, image and gif posts, with a handful
// of followers-only posts and replies mixed in
func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	var posts []models.Post
	if len(users) == 0 {
		return posts, nil
	}

	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]

		post := models.Post{
			UserID:     author.ID,
			Kind:       models.PostKindText,
			Body:       gofakeit.HipsterSentence(),
			Visibility: models.VisibilityPublic,
		}

		switch rand.Intn(10) {
		case 0, 1:
			post.Kind = models.PostKindImages
			post.ImageURL = models.StringArray{gofakeit.URL()}
		case 2:
			post.Kind = models.PostKindGif
			post.GifURL = gofakeit.URL()
		}

		if rand.Float32() < 0.1 {
			post.Visibility = models.VisibilityFollowers
		}

		// Spread creation times over the past two weeks so feeds interleave
		post.CreatedAt = gofakeit.DateRange(time.Now().AddDate(0, 0, -14), time.Now())

		if len(posts) > 0 && rand.Float32() < 0.15 {
			parent := posts[rand.Intn(len(posts))]
			post.ParentPostID = &parent.ID
		}

		if err := s.db.Create(&post).Error; err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		posts = append(posts, post)
	}

	logger.Log.Info("Created seed posts", zap.Int("posts", len(posts)))
	return posts, nil
}

// seedPollPosts creates poll posts with 2-4 options and scattered votes
func (s *Seeder) seedPollPosts(users []models.User, count int) error {
	if len(users) == 0 {
		return nil
	}

	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]

		post := models.Post{
			UserID:     author.ID,
			Kind:       models.PostKindPoll,
			Body:       gofakeit.Question(),
			Visibility: models.VisibilityPublic,
		}
		if err := s.db.Create(&post).Error; err != nil {
			return fmt.Errorf("failed to create poll post: %w", err)
		}

		poll := models.Poll{
			PostID:     post.ID,
			LengthDays: rand.Intn(6) + 1,
		}
		if err := s.db.Create(&poll).Error; err != nil {
			return fmt.Errorf("failed to create poll: %w", err)
		}

		optionCount := rand.Intn(3) + 2
		for idx := 0; idx < optionCount; idx++ {
			option := models.PollOption{
				PollID: poll.ID,
				Idx:    idx,
				Label:  gofakeit.Word(),
			}
			if err := s.db.Create(&option).Error; err != nil {
				return fmt.Errorf("failed to create poll option: %w", err)
			}
		}

		// A few voters per poll, one vote each
		voters := rand.Intn(len(users))
		if voters > 10 {
			voters = 10
		}
		for _, voter := range pickUsers(users, voters) {
			optionIdx := rand.Intn(optionCount)
			vote := models.PollVote{PostID: post.ID, UserID: voter.ID, OptionIndex: optionIdx}
			if err := s.db.Create(&vote).Error; err != nil {
				continue
			}
			s.db.Model(&models.PollOption{}).
				Where("poll_id = ? AND idx = ?", poll.ID, optionIdx).
				UpdateColumn("vote_count", gorm.Expr("vote_count + 1"))
		}
	}
	return nil
}

// seedRelationships wires follow edges plus a sprinkling of mutes
func (s *Seeder) seedRelationships(users []models.User) error {
	for _, user := range users {
		followCount := rand.Intn(8)
		for _, target := range pickUsers(users, followCount) {
			if target.ID == user.ID {
				continue
			}
			edge := models.RelationshipEdge{
				FromUserID: user.ID,
				ToUserID:   target.ID,
				Kind:       models.EdgeFollow,
			}
			// Unique index rejects duplicates, which is fine here
			_ = s.db.Create(&edge).Error
		}

		if rand.Float32() < 0.1 {
			target := users[rand.Intn(len(users))]
			if target.ID != user.ID {
				edge := models.RelationshipEdge{
					FromUserID: user.ID,
					ToUserID:   target.ID,
					Kind:       models.EdgeMute,
				}
				_ = s.db.Create(&edge).Error
			}
		}
	}
	return nil
}

// seedEngagement scatters likes, reposts and bookmarks over the posts
func (s *Seeder) seedEngagement(users []models.User, posts []models.Post) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}

	for _, post := range posts {
		for _, user := range pickUsers(users, rand.Intn(6)) {
			_ = s.db.Create(&models.Like{PostID: post.ID, UserID: user.ID}).Error
		}
		for _, user := range pickUsers(users, rand.Intn(3)) {
			_ = s.db.Create(&models.Repost{PostID: post.ID, UserID: user.ID}).Error
		}
		if rand.Float32() < 0.2 {
			user := users[rand.Intn(len(users))]
			_ = s.db.Create(&models.Bookmark{PostID: post.ID, UserID: user.ID}).Error
		}
	}
	return nil
}

// seedPromos creates the sponsored post pool used for feed injection
func (s *Seeder) seedPromos(count int) error {
	var existing int64
	s.db.Model(&models.PromoPost{}).Count(&existing)
	if existing >= int64(count) {
		return nil
	}

	for i := 0; i < count; i++ {
		promo := models.PromoPost{
			Sponsor:   gofakeit.Company(),
			Body:      gofakeit.HipsterSentence(),
			ImageURL:  gofakeit.URL(),
			TargetURL: gofakeit.URL(),
			IsActive:  true,
		}
		if err := s.db.Create(&promo).Error; err != nil {
			return fmt.Errorf("failed to create promo: %w", err)
		}
	}
	return nil
}

// pickUsers returns up to n distinct random users
func pickUsers(users []models.User, n int) []models.User {
	if n >= len(users) {
		n = len(users)
	}
	picked := make([]models.User, len(users))
	copy(picked, users)
	rand.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:n]
}

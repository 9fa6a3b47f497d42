package database

import (
	"testing"
	"time"

	"github.com/larkhq/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an in-memory sqlite database with the full schema
// migrated. TranslateError is on so unique-index violations surface as
// gorm.ErrDuplicatedKey exactly like the postgres configuration.
func NewTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		tb.Fatalf("failed to open test database: %v", err)
	}

	// A pooled :memory: database is one database per connection; pin
	// the pool to a single connection so every query sees the schema.
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get underlying sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
		&models.RelationshipEdge{},
		&models.Like{},
		&models.Repost{},
		&models.Bookmark{},
		&models.PostStat{},
		&models.PromoPost{},
	)
	if err != nil {
		tb.Fatalf("failed to migrate test database: %v", err)
	}

	tb.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

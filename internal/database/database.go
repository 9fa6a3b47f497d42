package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/larkhq/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "lark")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	// Configure GORM logger
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// Open database connection. TranslateError turns driver duplicate-key
	// errors into gorm.ErrDuplicatedKey so the transaction managers can
	// map uniqueness violations to conflict errors.
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Enable UUID extension for PostgreSQL
	err := DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
	if err != nil {
		log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
	}

	// Auto-migrate all models
	err = DB.AutoMigrate(
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
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes for performance
	err = createIndexes()
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// createIndexes creates performance indexes beyond what the model tags
// declare. The unique composite indexes that arbitrate concurrent
// duplicate writes live in the model tags so they exist in every
// environment, including tests.
func createIndexes() error {
	// User lookups
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")

	// Post feed queries
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_visibility_created ON posts (visibility, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_parent ON posts (parent_post_id) WHERE parent_post_id IS NOT NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_scheduled ON posts (scheduled_at) WHERE scheduled_at IS NOT NULL")

	// Relationship edge traversal
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_edges_to_kind ON relationship_edges (to_user_id, kind)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_edges_from_kind ON relationship_edges (from_user_id, kind)")

	// Engagement aggregation scans
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_likes_post ON likes (post_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reposts_post ON reposts (post_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reposts_created ON reposts (created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_post_stats_post_viewed ON post_stats (post_id) WHERE viewed = true")

	// Poll vote lookups per viewer
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_poll_votes_user ON poll_votes (user_id)")

	// Promotional pool
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_promo_posts_active ON promo_posts (is_active) WHERE is_active = true")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

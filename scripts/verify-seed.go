package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	fmt.Println("Verifying seed data...")
	fmt.Println()

	var userCount, postCount, pollCount, edgeCount, likeCount, promoCount int64

	database.DB.Model(&models.User{}).Where("deleted_at IS NULL").Count(&userCount)
	database.DB.Model(&models.Post{}).Where("deleted_at IS NULL").Count(&postCount)
	database.DB.Model(&models.Poll{}).Count(&pollCount)
	database.DB.Model(&models.RelationshipEdge{}).Count(&edgeCount)
	database.DB.Model(&models.Like{}).Count(&likeCount)
	database.DB.Model(&models.PromoPost{}).Where("is_active = true").Count(&promoCount)

	fmt.Println("Record Counts:")
	fmt.Printf("  Users:         %d\n", userCount)
	fmt.Printf("  Posts:         %d\n", postCount)
	fmt.Printf("  Polls:         %d\n", pollCount)
	fmt.Printf("  Edges:         %d\n", edgeCount)
	fmt.Printf("  Likes:         %d\n", likeCount)
	fmt.Printf("  Active promos: %d\n", promoCount)
	fmt.Println()

	var users []models.User
	database.DB.Where("deleted_at IS NULL").Limit(3).Find(&users)
	fmt.Println("  Sample Users:")
	for _, u := range users {
		fmt.Printf("    - %s (@%s)\n", u.DisplayName, u.Username)
	}
	fmt.Println()

	var posts []models.Post
	database.DB.Where("deleted_at IS NULL").Limit(3).Find(&posts)
	fmt.Println("  Sample Posts:")
	for _, p := range posts {
		body := p.Body
		if len(body) > 50 {
			body = body[:50] + "..."
		}
		fmt.Printf("    - [%s/%s] %s\n", p.Kind, p.Visibility, body)
	}
	fmt.Println()

	fmt.Println("Relationship Verification:")
	var postWithUser models.Post
	database.DB.Preload("User").Where("deleted_at IS NULL").First(&postWithUser)
	if postWithUser.User.ID != "" {
		fmt.Println("  Posts have user relationships")
	}

	var pollWithOptions models.Poll
	database.DB.Preload("Options").First(&pollWithOptions)
	if len(pollWithOptions.Options) >= 2 {
		fmt.Println("  Polls have their options")
	}
	fmt.Println()

	// Export sample data as JSON for API testing
	if len(os.Args) > 1 && os.Args[1] == "--json" && len(users) > 0 && len(posts) > 0 {
		sampleData := map[string]interface{}{
			"user_id":  users[0].ID,
			"username": users[0].Username,
			"post_id":  posts[0].ID,
		}
		jsonData, _ := json.MarshalIndent(sampleData, "", "  ")
		fmt.Println("Sample IDs for API testing:")
		fmt.Println(string(jsonData))
	}

	fmt.Println("Seed data verification complete")
}

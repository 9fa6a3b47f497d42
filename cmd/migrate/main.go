package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/larkhq/backend/internal/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	case "down":
		runMigrationsDown()
	default:
		fmt.Println("Usage: migrate [up|down]")
		fmt.Println("  up   - Run all pending migrations")
		fmt.Println("  down - Rollback last migration (not implemented)")
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("Connecting to database...")

	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("Running migrations...")

	if err := database.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("All migrations completed successfully")
}

func runMigrationsDown() {
	log.Println("Migration rollback not yet implemented")
	log.Println("Tip: models in internal/models are auto-migrated on `migrate up`")
	os.Exit(1)
}

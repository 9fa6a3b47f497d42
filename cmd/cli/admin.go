package main

import (
	"fmt"

	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/logger"
	"github.com/larkhq/backend/internal/seed"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func() error {
			if err := database.Migrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Migrations completed")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [dev|test|clean]",
	Short: "Seed or clean the database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := "dev"
		if len(args) > 0 {
			mode = args[0]
		}

		if err := logger.Initialize("info", "seed.log"); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Close()

		return withDB(func() error {
			if err := database.Migrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			seeder := seed.NewSeeder(database.DB)
			switch mode {
			case "dev":
				return seeder.SeedDev()
			case "test":
				return seeder.SeedTest()
			case "clean":
				return seeder.Clean()
			default:
				return fmt.Errorf("unknown seed mode %q (want dev, test or clean)", mode)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

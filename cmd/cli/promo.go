package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/larkhq/backend/internal/database"
	"github.com/larkhq/backend/internal/models"
	"github.com/spf13/cobra"
)

var (
	promoSponsor   string
	promoBody      string
	promoImageURL  string
	promoTargetURL string
)

var promoCmd = &cobra.Command{
	Use:   "promo",
	Short: "Manage the sponsored post pool",
	Long: `Manage the pool of sponsored posts injected into feeds. These
commands talk to the database directly and are meant for operators.`,
}

var promoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all promos in the pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(listPromos)
	},
}

var promoAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a promo to the pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		if promoSponsor == "" || promoBody == "" {
			return fmt.Errorf("--sponsor and --body are required")
		}
		return withDB(addPromo)
	},
}

var promoDeactivateCmd = &cobra.Command{
	Use:   "deactivate <promo-id>",
	Short: "Remove a promo from rotation without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func() error {
			return deactivatePromo(args[0])
		})
	},
}

func init() {
	promoAddCmd.Flags().StringVar(&promoSponsor, "sponsor", "", "Sponsor name")
	promoAddCmd.Flags().StringVar(&promoBody, "body", "", "Promo body text")
	promoAddCmd.Flags().StringVar(&promoImageURL, "image", "", "Promo image URL")
	promoAddCmd.Flags().StringVar(&promoTargetURL, "target", "", "Click-through URL")

	promoCmd.AddCommand(promoListCmd)
	promoCmd.AddCommand(promoAddCmd)
	promoCmd.AddCommand(promoDeactivateCmd)
}

func withDB(fn func() error) error {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}
	if err := database.Initialize(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	return fn()
}

func listPromos() error {
	var promos []models.PromoPost
	if err := database.DB.Order("created_at DESC").Find(&promos).Error; err != nil {
		return fmt.Errorf("failed to list promos: %w", err)
	}

	if output == "json" {
		encoded, err := json.MarshalIndent(promos, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	for _, promo := range promos {
		state := "active"
		if !promo.IsActive {
			state = "inactive"
		}
		fmt.Printf("%s  [%s]  %s: %s\n", promo.ID, state, promo.Sponsor, promo.Body)
	}
	fmt.Printf("%d promos\n", len(promos))
	return nil
}

func addPromo() error {
	promo := models.PromoPost{
		Sponsor:   promoSponsor,
		Body:      promoBody,
		ImageURL:  promoImageURL,
		TargetURL: promoTargetURL,
		IsActive:  true,
	}
	if err := database.DB.Create(&promo).Error; err != nil {
		return fmt.Errorf("failed to create promo: %w", err)
	}
	fmt.Printf("Created promo %s\n", promo.ID)
	return nil
}

func deactivatePromo(id string) error {
	result := database.DB.Model(&models.PromoPost{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate promo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("promo %s not found", id)
	}
	fmt.Printf("Deactivated promo %s\n", id)
	return nil
}

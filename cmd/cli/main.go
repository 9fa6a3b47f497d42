package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	authToken string
	apiURL    string = "http://localhost:8787"
	output    string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "lark",
	Short: "Lark CLI - Inspect feeds and manage the promo pool",
	Long: `Lark CLI provides command-line access to a running Lark backend.
Fetch feeds as any viewer and manage the sponsored post pool.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Authentication token (defaults to LARK_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(promoCmd)
}

func main() {
	if authToken == "" {
		authToken = os.Getenv("LARK_TOKEN")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

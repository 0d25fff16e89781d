// Package main provides the entry point for the fulfillment agent.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fulfillment_agent",
	Short: "Shopify to Shiprocket fulfillment automation",
	Long: `Fulfillment agent exports unfulfilled Shopify orders for the supplier, and ships the
latest exported batch through Shiprocket: risk screening, wallet check, courier assignment
and label generation.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (environment variables override it)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

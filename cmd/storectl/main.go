package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shopx/internal/app"
	"shopx/internal/config"
	"shopx/internal/logger"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "storectl",
	Short:         "ShopX operator CLI",
	Long:          "storectl manages the ShopX database: migrations, demo data, catalog imports and admin accounts.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	// Catalog
	rootCmd.AddCommand(importCmd)

	// Accounts
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(createAdminCmd)
}

// boot loads config and builds the service graph.
func boot(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	l := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).Named("storectl")
	a, err := app.New(ctx, cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return a, l, nil
}

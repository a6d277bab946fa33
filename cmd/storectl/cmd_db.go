package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shopx/internal/config"
	"shopx/internal/db"
	"shopx/internal/migrate"
	"shopx/internal/seed"
)

// storectl migrate [up|down|version]
var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Apply, roll back or inspect database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "up"
		if len(args) == 1 {
			action = args[0]
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()

		out := cmd.OutOrStdout()
		switch action {
		case "down":
			steps, _ := cmd.Flags().GetInt("steps")
			if err := migrate.Rollback(ctx, pool, steps); err != nil {
				return err
			}
			fmt.Fprintln(out, "migrations rolled back")
		case "version":
			v, dirty, ok, err := migrate.Version(ctx, pool)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "no migrations applied")
				return nil
			}
			fmt.Fprintf(out, "version %d (dirty=%t)\n", v, dirty)
		default:
			if err := migrate.Apply(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(out, "migrations applied")
		}
		return nil
	},
}

// storectl seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo categories, tags and products",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, l, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := migrate.Apply(ctx, a.Pool); err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("images")
		n, err := seed.New(a.Categories, a.Catalog, seed.ImagesDir(dir), l).Apply(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seed complete. Products created/ensured: %d\n", n)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Int("steps", 1, "number of migrations to roll back with down (0 = all)")
	seedCmd.Flags().String("images", "static", "directory holding demo product images")
}

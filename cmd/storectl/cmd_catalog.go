package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shopx/internal/importer"
)

// storectl import --file products.csv
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert products from a CSV file (slug,name,description,category,price,tags,image)",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return errors.New("--file is required")
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		defer f.Close()

		ctx := cmd.Context()
		a, _, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		start := time.Now()
		count, err := importer.NewCSVImporter(f, a.Catalog, a.Categories).Run(ctx)
		if err != nil {
			return fmt.Errorf("import failed after %d products: %w", count, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "path to the product CSV file")
}

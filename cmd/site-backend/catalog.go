package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/site-backend/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [file]",
	Short: "Validate a catalog and print its summaries",
	Long: "Validates the catalog against its schema and prints the service summaries as JSON.\n" +
		"Without a file argument the embedded catalog is checked.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		store, err := loadCatalog(path)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"count":    store.Len(),
			"services": store.ListSummaries(),
		})
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

// loadCatalog returns the embedded catalog, or the file at path when set.
func loadCatalog(path string) (*catalog.Store, error) {
	if path == "" {
		store, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("embedded catalog: %w", err)
		}
		return store, nil
	}
	store, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return store, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the catalog and object store",
	Long: `Creates the data directory, opens (and migrates) the catalog
database, and opens the content-addressed object store. Safe to run
again; it is a no-op on an already-initialized data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		fmt.Printf("initialized silo at %s (root %s)\n", cfg.DataDir, cfg.Root)
		return nil
	},
}

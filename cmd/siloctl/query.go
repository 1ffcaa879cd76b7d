package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [pattern]",
	Short: "List installed packages, optionally filtered by a name substring",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		var troves []types.Trove
		if len(args) == 1 {
			troves, err = catalog.SearchTroves(ctx, e.Catalog.DB(), args[0])
		} else {
			troves, err = catalog.ListTroves(ctx, e.Catalog.DB())
		}
		if err != nil {
			return err
		}

		for _, t := range troves {
			fmt.Printf("%s-%s.%s\n", t.Name, t.Version, t.Arch)
		}
		return nil
	},
}

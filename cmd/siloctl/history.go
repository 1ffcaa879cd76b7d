package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siloworks/silo/internal/catalog"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List every changeset, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		changesets, err := catalog.ListChangesets(ctx, e.Catalog.DB())
		if err != nil {
			return err
		}
		for _, cs := range changesets {
			reversed := ""
			if cs.ReversedBy != nil {
				reversed = fmt.Sprintf(" (reversed by %d)", *cs.ReversedBy)
			}
			fmt.Printf("%d\t%s\t%s\t%s%s\n", cs.ID, cs.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), cs.Status, cs.Description, reversed)
		}
		return nil
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deltaStatsCmd = &cobra.Command{
	Use:   "delta-stats",
	Short: "Show aggregate bandwidth savings from delta-assisted updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		summary, err := e.DeltaStatsSummary(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("bytes saved:     %d\n", summary.TotalBytesSaved)
		fmt.Printf("deltas applied:  %d\n", summary.TotalDeltasApplied)
		fmt.Printf("full downloads:  %d\n", summary.TotalFullDownloads)
		fmt.Printf("delta failures:  %d\n", summary.TotalDeltaFailures)
		return nil
	},
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <changeset_id>",
	Short: "Reverse a previously applied install changeset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid changeset id %q: %w", args[0], err)
		}

		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		result, err := e.Rollback(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("rolled back changeset %d via new changeset %d\n", result.ReversedChangesetID, result.ReversingChangesetID)
		if result.Degraded {
			fmt.Fprintf(os.Stderr, "warning: rollback committed but %d file(s) failed to retract\n", len(result.DeployErrs))
		}
		return nil
	},
}

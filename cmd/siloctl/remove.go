package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		result, err := e.Remove(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("removed %s (changeset %d)\n", args[0], result.ChangesetID)
		if result.Degraded {
			fmt.Fprintf(os.Stderr, "warning: changeset %d committed but %d file(s) failed to retract\n",
				result.ChangesetID, len(result.DeployErrs))
		}
		return nil
	},
}

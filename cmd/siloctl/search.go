package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search installed packages and synced repository indexes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		results, err := e.Search(ctx, args[0])
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Installed {
				fmt.Printf("%s-%s [installed]\n", r.Name, r.Version)
				continue
			}
			fmt.Printf("%s-%s (%s, priority %d)\n", r.Name, r.Version, r.Repository, r.Priority)
		}
		return nil
	},
}

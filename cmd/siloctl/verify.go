package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/deployer"
	"github.com/siloworks/silo/internal/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [name]",
	Short: "Compare installed files against their recorded content hash",
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
			t, err := catalog.FindTroveByName(ctx, e.Catalog.DB(), args[0])
			if err != nil {
				return err
			}
			troves = []types.Trove{t}
		} else {
			troves, err = catalog.ListTroves(ctx, e.Catalog.DB())
			if err != nil {
				return err
			}
		}

		mismatches := 0
		for _, t := range troves {
			files, err := catalog.ListFilesByTrove(ctx, e.Catalog.DB(), t.ID)
			if err != nil {
				return err
			}
			for _, f := range files {
				result, err := e.Deployer.Verify(f.Path, f.SHA256)
				if err != nil {
					return err
				}
				if result != deployer.VerifyOK {
					mismatches++
					fmt.Printf("%s %s: %s\n", t.Name, f.Path, result)
				}
			}
		}
		if mismatches == 0 {
			fmt.Println("all files verified ok")
		}
		return nil
	},
}

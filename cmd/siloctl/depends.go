package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siloworks/silo/internal/catalog"
)

var dependsCmd = &cobra.Command{
	Use:   "depends <name>",
	Short: "List the dependencies of an installed package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		trove, err := catalog.FindTroveByName(ctx, e.Catalog.DB(), args[0])
		if err != nil {
			return err
		}

		deps, err := catalog.ListDependenciesByTrove(ctx, e.Catalog.DB(), trove.ID)
		if err != nil {
			return err
		}
		for _, d := range deps {
			fmt.Printf("%s (%s)\n", d.DependsOnName, d.Kind)
		}
		return nil
	},
}

var rdependsCmd = &cobra.Command{
	Use:   "rdepends <name>",
	Short: "List installed packages that depend on name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		names, err := e.WhatBreaks(ctx, args[0])
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var whatbreaksCmd = &cobra.Command{
	Use:   "whatbreaks <name>",
	Short: "Show what would break if name were removed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		names, err := e.WhatBreaks(ctx, args[0])
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Printf("removing %s would break nothing\n", args[0])
			return nil
		}
		fmt.Printf("removing %s would break:\n", args[0])
		for _, n := range names {
			fmt.Println("  " + n)
		}
		return nil
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/repository"
	"github.com/siloworks/silo/internal/types"
)

var repoAddCmd = &cobra.Command{
	Use:   "repo-add <name> <url>",
	Short: "Configure a new repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatStr, _ := cmd.Flags().GetString("format")
		priority, _ := cmd.Flags().GetInt("priority")
		gpgCheck, _ := cmd.Flags().GetBool("gpg-check")

		format, err := types.ParseRepositoryFormat(formatStr)
		if err != nil {
			return err
		}

		cfg := loadConfig(cmd)
		ctx := context.Background()
		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		_, err = catalog.InsertRepository(ctx, e.Catalog.DB(), types.Repository{
			Name:     args[0],
			URL:      args[1],
			Format:   format,
			Enabled:  true,
			Priority: priority,
			GPGCheck: gpgCheck,
		})
		if err != nil {
			return err
		}
		fmt.Printf("added repository %s (%s, priority %d)\n", args[0], format, priority)
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "repo-remove <name>",
	Short: "Remove a configured repository and its synced index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()
		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		if err := catalog.DeleteRepository(ctx, e.Catalog.DB(), args[0]); err != nil {
			return err
		}
		fmt.Printf("removed repository %s\n", args[0])
		return nil
	},
}

var repoEnableCmd = &cobra.Command{
	Use:   "repo-enable <name>",
	Short: "Enable a configured repository",
	Args:  cobra.ExactArgs(1),
	RunE:  repoSetEnabled(true),
}

var repoDisableCmd = &cobra.Command{
	Use:   "repo-disable <name>",
	Short: "Disable a configured repository without removing it",
	Args:  cobra.ExactArgs(1),
	RunE:  repoSetEnabled(false),
}

func repoSetEnabled(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()
		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		if err := catalog.SetRepositoryEnabled(ctx, e.Catalog.DB(), args[0], enabled); err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Printf("%s repository %s\n", state, args[0])
		return nil
	}
}

var repoListCmd = &cobra.Command{
	Use:   "repo-list",
	Short: "List configured repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()
		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		repos, err := catalog.ListRepositories(ctx, e.Catalog.DB())
		if err != nil {
			return err
		}
		for _, r := range repos {
			state := "disabled"
			if r.Enabled {
				state = "enabled"
			}
			fmt.Printf("%s\t%s\t%s\tpriority=%d\t%s\n", r.Name, r.URL, r.Format, r.Priority, state)
		}
		return nil
	},
}

var repoSyncCmd = &cobra.Command{
	Use:   "repo-sync",
	Short: "Refresh every enabled repository's package index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()
		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		syncer := repository.New(e.Catalog, newHTTPFetcher(), nil)
		results, err := syncer.SyncAll(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("%s: failed: %v\n", r.Repository, r.Err)
				continue
			}
			fmt.Printf("%s: %d packages, %d deltas\n", r.Repository, r.PackageCount, r.DeltaCount)
		}
		return nil
	},
}

func init() {
	repoAddCmd.Flags().String("format", "rpm", "Repository format: rpm, deb, or arch")
	repoAddCmd.Flags().Int("priority", 0, "Resolution priority; a higher-priority repository is preferred even over a newer version elsewhere")
	repoAddCmd.Flags().Bool("gpg-check", true, "Require GPG-signed metadata")
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siloworks/silo/internal/archive"
	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/engine"
)

var updateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Update one or all installed packages to the newest repository version",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		ctx := context.Background()

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Catalog.Close()

		var names []string
		if len(args) == 1 {
			names = []string{args[0]}
		} else {
			troves, err := catalog.ListTroves(ctx, e.Catalog.DB())
			if err != nil {
				return err
			}
			for _, t := range troves {
				names = append(names, t.Name)
			}
		}

		fetcher := newHTTPFetcher()
		parser := archive.Parser{}
		for _, name := range names {
			if err := updateOne(ctx, e, name, fetcher, parser); err != nil {
				fmt.Fprintf(os.Stderr, "update %s: %v\n", name, err)
			}
		}
		return nil
	},
}

func updateOne(ctx context.Context, e *engine.Engine, name string, fetcher *httpFetcher, parser archive.Parser) error {
	provider, err := e.BestProvider(ctx, name)
	if err != nil {
		return err
	}

	format, ok := detectFormat(provider.DownloadURL)
	if !ok {
		return fmt.Errorf("cannot determine archive format from URL %q", provider.DownloadURL)
	}

	target := engine.UpdateTarget{
		Format:      format,
		Version:     provider.Version,
		DownloadURL: provider.DownloadURL,
		Checksum:    provider.Checksum,
	}

	result, err := e.Update(ctx, name, target, nil, fetcher, parser)
	if err != nil {
		return err
	}

	fmt.Printf("updated %s to %s (changeset %d, delta=%v)\n", name, provider.Version, result.ChangesetID, result.UsedDelta)
	if result.Degraded {
		fmt.Fprintf(os.Stderr, "warning: changeset %d committed but %d file(s) failed to deploy\n",
			result.ChangesetID, len(result.DeployErrs))
	}
	return nil
}

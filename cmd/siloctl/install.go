package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siloworks/silo/internal/archive"
	"github.com/siloworks/silo/internal/engine"
	"github.com/siloworks/silo/internal/resolver"
	"github.com/siloworks/silo/internal/types"
)

var installCmd = &cobra.Command{
	Use:   "install <package-or-path>",
	Short: "Install a package from a local archive or a configured repository",
	Long: `install takes either a path to a local .rpm/.deb/.pkg.tar.* archive,
which is installed directly, or a bare package name, which is resolved
against the configured repositories (pulling in its transitive
dependencies) before each resolved package is downloaded and installed.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().String("repo", "", "Repository name (not consulted: resolution considers every enabled repository)")
	installCmd.Flags().Bool("dry-run", false, "Print the install plan without installing anything")
}

func runInstall(cmd *cobra.Command, args []string) error {
	target := args[0]
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg := loadConfig(cmd)
	ctx := context.Background()

	e, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Catalog.Close()

	if format, ok := detectFormat(target); ok {
		if _, statErr := os.Stat(target); statErr == nil {
			return installLocalArchive(ctx, e, target, format, dryRun)
		}
	}

	return installFromRepository(ctx, e, target, dryRun)
}

func installLocalArchive(ctx context.Context, e *engine.Engine, path string, format types.RepositoryFormat, dryRun bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	pkg, err := archive.Parser{}.Parse(format, data)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("would install %s-%s.%s\n", pkg.Name(), pkg.Version(), pkg.Arch())
		return nil
	}

	result, err := e.Install(ctx, pkg)
	if err != nil {
		return err
	}
	reportInstall(pkg.Name(), pkg.Version(), result)
	return nil
}

func installFromRepository(ctx context.Context, e *engine.Engine, name string, dryRun bool) error {
	plan, err := e.Plan(ctx, []resolver.Request{{Name: name}})
	if err != nil {
		return err
	}
	if plan.Cyclic {
		fmt.Fprintln(os.Stderr, "warning: dependency cycle detected, installing in discovery order")
	}
	if len(plan.Entries) == 0 {
		fmt.Printf("%s is already installed\n", name)
		return nil
	}

	if dryRun {
		for _, entry := range plan.Entries {
			fmt.Printf("would install %s-%s from %s\n", entry.Name, entry.Provider.Version, entry.Provider.RepositoryName)
		}
		return nil
	}

	fetcher := newHTTPFetcher()
	for _, entry := range plan.Entries {
		format, ok := detectFormat(entry.Provider.DownloadURL)
		if !ok {
			return fmt.Errorf("cannot determine archive format for %s from URL %q", entry.Name, entry.Provider.DownloadURL)
		}

		data, err := fetcher.Fetch(ctx, entry.Provider.DownloadURL)
		if err != nil {
			return types.NewDownloadError("fetching "+entry.Name, err)
		}
		if entry.Provider.Checksum != "" {
			if sum := sha256HexOf(data); sum != entry.Provider.Checksum {
				return types.NewChecksumMismatchError(entry.Provider.Checksum, sum)
			}
		}

		pkg, err := archive.Parser{}.Parse(format, data)
		if err != nil {
			return err
		}

		result, err := e.Install(ctx, pkg)
		if err != nil {
			return err
		}
		reportInstall(entry.Name, entry.Provider.Version, result)
	}
	return nil
}

func reportInstall(name, version string, result engine.InstallResult) {
	fmt.Printf("installed %s-%s (changeset %d, %s)\n", name, version, result.ChangesetID, result.Outcome)
	if result.Degraded {
		fmt.Fprintf(os.Stderr, "warning: changeset %d committed but %d file(s) failed to deploy\n",
			result.ChangesetID, len(result.DeployErrs))
	}
}

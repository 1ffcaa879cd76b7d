package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siloworks/silo/internal/catalog"
	"github.com/siloworks/silo/internal/config"
	"github.com/siloworks/silo/internal/engine"
	"github.com/siloworks/silo/internal/log"
	"github.com/siloworks/silo/internal/objectstore"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "siloctl",
	Short: "silo - a cross-format package manager's atomic installation engine",
	Long: `siloctl installs, removes, updates, and inspects packages across
RPM, Debian, and Arch archive formats through one transactional catalog,
one content-addressed object store, and one atomic file deployer.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"siloctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding the catalog and object store (default: $SILO_DATA_DIR or /var/lib/silo)")
	rootCmd.PersistentFlags().String("root", "", "Installation root the deployer writes under (default: $SILO_ROOT or /)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(dependsCmd)
	rootCmd.AddCommand(rdependsCmd)
	rootCmd.AddCommand(whatbreaksCmd)
	rootCmd.AddCommand(deltaStatsCmd)
	rootCmd.AddCommand(repoAddCmd)
	rootCmd.AddCommand(repoRemoveCmd)
	rootCmd.AddCommand(repoEnableCmd)
	rootCmd.AddCommand(repoDisableCmd)
	rootCmd.AddCommand(repoListCmd)
	rootCmd.AddCommand(repoSyncCmd)
	rootCmd.AddCommand(completionsCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// loadConfig overlays any explicit --data-dir/--root flags onto the
// environment-derived defaults.
func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.Default()
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("root"); v != "" {
		cfg.Root = v
	}
	return cfg
}

// openEngine opens the Catalog and Object Store under cfg.DataDir and
// wires a Changeset Engine against cfg.Root. Callers are responsible for
// closing the returned Catalog.
func openEngine(ctx context.Context, cfg config.Config) (*engine.Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cat, err := catalog.Open(ctx, cfg.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	store, err := objectstore.New(cfg.ObjectStorePath())
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	return engine.New(cat, store, cfg.Root), nil
}

// Package config holds the small set of settings every siloctl subcommand
// needs to open the same catalog and object store: where the database
// lives, where packages get deployed, and which repositories are
// configured by default on a fresh init. Values come from CLI flags with
// environment-variable fallbacks, mirroring the teacher's
// cmd/warren/main.go flag handling.
package config

import "os"

// Config is resolved once by the CLI root command and threaded into every
// subcommand.
type Config struct {
	// DataDir holds catalog.db and the object store's CAS tree.
	DataDir string
	// Root is where the Deployer materializes installed files.
	Root string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogJSON selects structured JSON logging over the human console writer.
	LogJSON bool
}

const (
	defaultDataDir  = "/var/lib/silo"
	defaultRoot     = "/"
	defaultLogLevel = "info"
)

// Default returns a Config seeded from environment variables where set,
// falling back to the package defaults otherwise. The CLI layer overlays
// any explicit flags onto the result.
func Default() Config {
	return Config{
		DataDir:  envOr("SILO_DATA_DIR", defaultDataDir),
		Root:     envOr("SILO_ROOT", defaultRoot),
		LogLevel: envOr("SILO_LOG_LEVEL", defaultLogLevel),
		LogJSON:  os.Getenv("SILO_LOG_JSON") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// CatalogPath is the sqlite file under DataDir the Catalog opens.
func (c Config) CatalogPath() string {
	return c.DataDir + "/catalog.db"
}

// ObjectStorePath is the CAS root under DataDir the Object Store opens.
func (c Config) ObjectStorePath() string {
	return c.DataDir + "/objects"
}

// DefaultRepositories seeds a fresh install with no repositories configured;
// operators add their own via `siloctl repo-add`. Kept as a function
// rather than a package var so future default mirrors are one edit here.
func DefaultRepositories() []string {
	return nil
}

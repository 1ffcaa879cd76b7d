package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultUsesPackageDefaultsWhenUnset(t *testing.T) {
	t.Setenv("SILO_DATA_DIR", "")
	t.Setenv("SILO_ROOT", "")
	t.Setenv("SILO_LOG_LEVEL", "")
	t.Setenv("SILO_LOG_JSON", "")

	cfg := Default()
	assert.Equal(t, defaultDataDir, cfg.DataDir)
	assert.Equal(t, defaultRoot, cfg.Root)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
}

func TestDefaultHonorsEnvironmentOverrides(t *testing.T) {
	t.Setenv("SILO_DATA_DIR", "/tmp/silo-data")
	t.Setenv("SILO_ROOT", "/tmp/silo-root")
	t.Setenv("SILO_LOG_LEVEL", "debug")
	t.Setenv("SILO_LOG_JSON", "true")

	cfg := Default()
	assert.Equal(t, "/tmp/silo-data", cfg.DataDir)
	assert.Equal(t, "/tmp/silo-root", cfg.Root)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
}

func TestCatalogAndObjectStorePaths(t *testing.T) {
	cfg := Config{DataDir: "/var/lib/silo"}
	assert.Equal(t, "/var/lib/silo/catalog.db", cfg.CatalogPath())
	assert.Equal(t, "/var/lib/silo/objects", cfg.ObjectStorePath())
}

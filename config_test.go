package userkit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoadConfig tests reading a YAML configuration file
func TestLoadConfig(t *testing.T) {
	t.Setenv("USERKIT_DATABASE_URL", "")
	path := writeConfig(t, "userkit.yml", `
database_url: postgres://localhost/refinery
log_level: debug
pool:
  max_open_connections: 20
access_cache:
  size: 128
  ttl: 30s
reset_password_within: 2h
plugins:
  - name: refinery_dashboard
    url: /refinery
    always_allowed: true
  - name: refinery_pages
    title: Pages
    url: /refinery/pages
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/refinery", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 20, cfg.Pool.MaxOpenConnections)
	assert.Equal(t, DefaultPoolConfig().MaxIdleConnections, cfg.Pool.MaxIdleConnections)
	assert.Equal(t, 128, cfg.AccessCache.Size)
	assert.Equal(t, 30*time.Second, cfg.AccessCache.TTL)
	assert.Equal(t, 2*time.Hour, cfg.ResetPasswordWithin)

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Equal(t, []string{"refinery_dashboard", "refinery_pages"}, catalog.Names())
	assert.Equal(t, []string{"refinery_dashboard"}, catalog.AlwaysAllowed().Names())

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	assert.Len(t, cfg.Options(), 2)
}

// TestLoadConfigEnv tests environment overrides
func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("USERKIT_DATABASE_URL", "postgres://env/refinery")
	t.Setenv("USERKIT_POOL_MAX_OPEN_CONNECTIONS", "42")
	t.Setenv("USERKIT_RESET_TOKEN_SECRET", "s3cret")

	path := writeConfig(t, "userkit.yml", "database_url: postgres://file/refinery\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/refinery", cfg.DatabaseURL)
	assert.Equal(t, 42, cfg.Pool.MaxOpenConnections)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultResetPasswordWithin, cfg.ResetPasswordWithin)

	// reset window and token secret; the cache is off by default
	assert.Len(t, cfg.Options(), 2)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/refinery", cfg.DatabaseURL)
}

// TestLoadConfigInvalid tests configuration errors
func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("USERKIT_DATABASE_URL", "")

	t.Run("missing database url", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "userkit.yml", "log_level: info\n"))
		assert.Error(t, err)
	})

	t.Run("unknown log level", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "userkit.yml", "database_url: postgres://x\nlog_level: loud\n"))
		assert.Error(t, err)
	})

	t.Run("plugin without name", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "userkit.yml", "database_url: postgres://x\nplugins:\n  - url: /refinery\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
		assert.Error(t, err)
	})
}

// TestConfigCatalogFile tests that a catalog file takes precedence over inline plugins
func TestConfigCatalogFile(t *testing.T) {
	catalogPath := writeConfig(t, "plugins.yml", "plugins:\n  - name: refinery_files\n")
	cfg := &Config{
		DatabaseURL: "postgres://x",
		CatalogFile: catalogPath,
		Plugins:     []PluginConfig{{Name: "refinery_pages"}},
	}

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Equal(t, []string{"refinery_files"}, catalog.Names())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverlaysDefinedKeys(t *testing.T) {
	path := writeConfig(t, `
model_store_path = "/srv/models"
cache_root_path = "/var/cache/models"
user_agent = "model-archive/1.0"
download_timeout = "90s"
max_concurrent_downloads = 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/models", cfg.ModelStorePath)
	assert.Equal(t, "/var/cache/models", cfg.CacheRootPath)
	assert.Equal(t, "model-archive/1.0", cfg.UserAgent)
	assert.Equal(t, 90*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, int64(4), cfg.MaxConcurrentDownloads)
}

func TestLoadKeepsDefaultsForUndefinedKeys(t *testing.T) {
	path := writeConfig(t, `model_store_path = "/srv/models"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/models", cfg.ModelStorePath)
	assert.Empty(t, cfg.CacheRootPath)
	assert.Zero(t, cfg.DownloadTimeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
model_store_path = "/srv/models"
cache_root_path = "/var/cache/models"
`)

	t.Setenv(EnvModelStorePath, "/mnt/store")
	t.Setenv(EnvCacheRootPath, "/mnt/cache")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/store", cfg.ModelStorePath)
	assert.Equal(t, "/mnt/cache", cfg.CacheRootPath)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `download_timeout = "soon"`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveConcurrency(t *testing.T) {
	path := writeConfig(t, `max_concurrent_downloads = 0`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	cfg := Config{
		ModelStorePath:         "/srv/models",
		CacheRootPath:          "/var/cache/models",
		UserAgent:              "model-archive/1.0",
		DownloadTimeout:        time.Minute,
		MaxConcurrentDownloads: 4,
	}
	assert.Len(t, cfg.ClientOptions(), 5)

	assert.Len(t, Default().ClientOptions(), 1)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Showcase.PageSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.Booking.Delay)
	assert.Equal(t, 2, cfg.Booking.Workers)
	assert.Equal(t, 64, cfg.Booking.QueueSize)
	assert.Equal(t, "ffmpeg", cfg.Tools.Ffmpeg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9090
showcase:
  page_size: 6
booking:
  delay: 250ms
storage:
  assets_path: /srv/skb
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Showcase.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Booking.Delay)
	assert.Equal(t, "/srv/skb", cfg.Storage.AssetsPath)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SKB_PORT", "7000")
	t.Setenv("SKB_CATALOG_PATH", "site.yaml")

	cfg, err := Load("missing.yaml")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "site.yaml", cfg.Storage.CatalogPath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

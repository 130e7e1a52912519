package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, StorageJSON, cfg.Storage.Type)
	assert.Equal(t, 50, cfg.Shop.MaxCartAdd)
	assert.Equal(t, 5, cfg.Shop.LowStockThreshold)
	assert.Equal(t, 8, cfg.Shop.MinPasswordLength)
	assert.False(t, cfg.Shop.StrictRelease)
	assert.Equal(t, 30*time.Minute, cfg.Shop.OrphanOrderAge)
	assert.Equal(t, "@every 5m", cfg.Jobs.LowStockScan)
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "ocss.yml")
	content := `
system:
  workdir: /var/ocss
storage:
  type: bolt
shop:
  max_cart_add: 10
  orphan_order_age: 1h
logger:
  file_enable: true
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o644))

	t.Setenv("OCSS_STRICT_RELEASE", "true")
	t.Setenv("OCSS_LOW_STOCK_THRESHOLD", "3")
	t.Setenv("OCSS_DB_PORT", "not-a-port")

	cfg, err := LoadConfig(cfile)
	require.NoError(t, err)

	assert.Equal(t, "/var/ocss", cfg.System.Workdir)
	assert.Equal(t, StorageBolt, cfg.Storage.Type)
	assert.Equal(t, 10, cfg.Shop.MaxCartAdd)
	assert.Equal(t, time.Hour, cfg.Shop.OrphanOrderAge)
	assert.True(t, cfg.Shop.StrictRelease)
	assert.Equal(t, 3, cfg.Shop.LowStockThreshold)
	assert.Equal(t, 5432, cfg.Storage.Port)
	assert.Equal(t, "/var/ocss/logs/ocss.log", cfg.Logger.Filename)
	assert.Equal(t, "/var/ocss/data", cfg.GetDataDir())
	assert.Equal(t, "/var/ocss/session.json", cfg.GetSessionFile())
}

func TestLoadConfig_BadYAML(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(cfile, []byte("shop: [1, 2"), 0o644))
	_, err := LoadConfig(cfile)
	assert.Error(t, err)
}

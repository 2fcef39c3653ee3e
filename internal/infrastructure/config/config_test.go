package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file falls back to defaults")

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10), cfg.Auction.MinIncrement)
	assert.Equal(t, 2*time.Minute, cfg.Auction.AntiSnipeWindow)
	assert.Equal(t, 30*time.Second, cfg.Auction.SettleInterval)
	assert.Equal(t, 100, cfg.Auction.SettleBatchSize)
	assert.Equal(t, 10, cfg.Server.RateLimit.RequestsPerSecond)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
environment: production
server:
  port: 9000
auction:
  min_increment: 25
  anti_snipe_window: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(25), cfg.Auction.MinIncrement)
	assert.Equal(t, 5*time.Minute, cfg.Auction.AntiSnipeWindow)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600))

	t.Setenv("ABE_SERVER_PORT", "9100")
	t.Setenv("ABE_DATABASE_URL", "postgres://app@db:5432/auctions")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "postgres://app@db:5432/auctions", cfg.Database.URL)
}

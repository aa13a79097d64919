package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "data", config.Storage.Path)
	assert.Equal(t, "https://www.alphavantage.co/query", config.Clients.AlphaVantage.BaseURL)
	assert.Equal(t, 5, config.Clients.AlphaVantage.RateLimit)
	assert.Equal(t, 15*time.Second, config.Clients.AlphaVantage.GetTimeout())
	assert.Equal(t, 10000.0, config.Trading.StartingCash)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig("does-not-exist.toml")
	require.NoError(t, err)
	assert.Equal(t, 10000.0, config.Trading.StartingCash)
}

func TestLoadConfigMergesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papertrader.toml")
	content := `
[storage]
path = "/var/lib/papertrader"

[clients.alphavantage]
api_key = "abc123"
timeout = "5s"

[trading]
starting_cash = 25000.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/papertrader", config.Storage.Path)
	assert.Equal(t, "abc123", config.Clients.AlphaVantage.APIKey)
	assert.Equal(t, 5*time.Second, config.Clients.AlphaVantage.GetTimeout())
	assert.Equal(t, 25000.0, config.Trading.StartingCash)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://www.alphavantage.co/query", config.Clients.AlphaVantage.BaseURL)
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TRADER_DATA_PATH", "/tmp/override")
	t.Setenv("ALPHA_VANTAGE_API_KEY", "env-key")
	t.Setenv("TRADER_STARTING_CASH", "50000")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override", config.Storage.Path)
	assert.Equal(t, "env-key", config.Clients.AlphaVantage.APIKey)
	assert.Equal(t, 50000.0, config.Trading.StartingCash)
}

func TestGetTimeoutFallback(t *testing.T) {
	c := AlphaVantageConfig{Timeout: "bogus"}
	assert.Equal(t, 15*time.Second, c.GetTimeout())
}

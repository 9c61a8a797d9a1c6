package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.RateLimit)

	assert.Equal(t, "./data/steamgems.db", cfg.SQLite.Path)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 300, cfg.Redis.TTLSec)

	assert.Equal(t, "https://store.steampowered.com/api", cfg.Steam.StoreBaseURL)
	assert.Equal(t, 1440, cfg.Steam.FreshnessMinutes)

	assert.Equal(t, "google/gemini-2.5-flash", cfg.Classifier.Model)
	assert.Equal(t, 25, cfg.Classifier.TimeoutSec)

	assert.Equal(t, 24, cfg.Rankings.CacheMaxAgeHours)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STEAMGEMS_SERVER_PORT", "9090")
	t.Setenv("STEAMGEMS_STEAM_FRESHNESSMINUTES", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Steam.FreshnessMinutes)
}

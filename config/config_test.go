package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Poxagronka/fireflies-summary/pkg/logging"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, logging.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, 0.70, cfg.Matcher.ConfirmThreshold)
	assert.Equal(t, 0.40, cfg.Matcher.RejectThreshold)
	assert.Equal(t, 50, cfg.Store.MaxWindow)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"confirm below reject", func(c *Config) { c.Matcher.ConfirmThreshold = 0.3 }},
		{"confirm above one", func(c *Config) {
			c.Matcher.ConfirmThreshold = 1.5
			c.Matcher.RejectThreshold = 0.9
		}},
		{"negative reject", func(c *Config) { c.Matcher.RejectThreshold = -0.1 }},
		{"title filter above one", func(c *Config) { c.Matcher.TitleFilterThreshold = 1.2 }},
		{"negative title filter", func(c *Config) { c.Matcher.TitleFilterThreshold = -0.1 }},
		{"negative tie delta", func(c *Config) { c.Matcher.TieDelta = -0.01 }},
		{"negative weight", func(c *Config) { c.Matcher.Weights.Interval = -0.25 }},
		{"zero weights", func(c *Config) {
			c.Matcher.Weights.Title = 0
			c.Matcher.Weights.Interval = 0
			c.Matcher.Weights.Participants = 0
			c.Matcher.Weights.Topics = 0
		}},
		{"decay factor above one", func(c *Config) { c.Store.DecayFactor = 1.5 }},
		{"tolerance out of range", func(c *Config) { c.Store.Interval.Tolerance = 1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log_level: debug
log_json: true
poll_interval: 90s
matcher:
  confirm_threshold: 0.8
  reject_threshold: 0.35
  title_filter_threshold: 0.7
  tie_delta: 0.02
  weights:
    title: 0.5
    interval: 0.2
    participants: 0.2
    topics: 0.1
store:
  max_window: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("FFS_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, logging.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, 0.8, cfg.Matcher.ConfirmThreshold)
	assert.Equal(t, 0.35, cfg.Matcher.RejectThreshold)
	assert.Equal(t, 0.5, cfg.Matcher.Weights.Title)
	assert.Equal(t, 25, cfg.Store.MaxWindow)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.9, cfg.Store.DecayFactor)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))
	t.Setenv("FFS_CONFIG", path)
	t.Setenv("FFS_LOG_LEVEL", "error")
	t.Setenv("FFS_POLL_INTERVAL", "30s")
	t.Setenv("FFS_DB_HOST", "db.internal")
	t.Setenv("FFS_DB_PORT", "5433")
	t.Setenv("FFS_REDIS_ADDR", "cache.internal:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, logging.LevelError, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 5433, cfg.Postgres.Port)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FFS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [broken\n"), 0o600))
	t.Setenv("FFS_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidFileValuesRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "matcher:\n  confirm_threshold: 0.2\n  reject_threshold: 0.4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("FFS_CONFIG", path)

	_, err := Load()
	assert.Error(t, err)
}

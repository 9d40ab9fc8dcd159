// Package config provides configuration management for the fireflies-summary
// service. It supports loading configuration from a YAML file and environment
// variables; later sources override earlier ones.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Poxagronka/fireflies-summary/pkg/engine"
	"github.com/Poxagronka/fireflies-summary/pkg/logging"
	"github.com/Poxagronka/fireflies-summary/pkg/queue"
	"github.com/Poxagronka/fireflies-summary/pkg/series"
	"github.com/Poxagronka/fireflies-summary/pkg/store"
)

// Default configuration values.
const (
	DefaultConfigDir    = ".fireflies-summary"
	DefaultConfigFile   = "config.yaml"
	DefaultPollInterval = 5 * time.Minute
)

// Config holds the full service configuration. Every matching threshold,
// weight and tolerance lives here: they are tuning constants, not contracts.
type Config struct {
	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel logging.Level `yaml:"log_level"`

	// LogJSON switches log output to JSON (production) instead of console.
	LogJSON bool `yaml:"log_json"`

	// PollInterval is how often the engine drains the intake queue.
	PollInterval time.Duration `yaml:"-"`

	// Matcher holds the match thresholds and signal weights.
	Matcher series.MatcherConfig `yaml:"matcher"`

	// Store holds the in-memory window size, profile decay and cadence
	// bucket tolerances.
	Store store.Config `yaml:"store"`

	// Engine holds worker and batch bounds.
	Engine engine.Config `yaml:"engine"`

	// Postgres holds durable store settings. Leave Host empty to run
	// memory-only.
	Postgres store.PostgresConfig `yaml:"postgres"`

	// Redis holds intake queue settings. Leave Addr empty to disable the
	// queue (one-shot commands).
	Redis queue.RedisConfig `yaml:"redis"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LogLevel:     logging.LevelInfo,
		PollInterval: DefaultPollInterval,
		Matcher:      series.DefaultMatcherConfig(),
		Store:        store.DefaultConfig(),
		Engine:       engine.DefaultConfig(),
		Postgres:     store.DefaultPostgresConfig(),
		Redis:        queue.DefaultRedisConfig(),
	}
}

// Path returns the config file path: $FFS_CONFIG if set, otherwise
// ~/.fireflies-summary/config.yaml.
func Path() (string, error) {
	if p := os.Getenv("FFS_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Load builds the configuration from defaults, the config file (if present)
// and environment variables, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// fileConfig mirrors Config with durations as strings for YAML.
type fileConfig struct {
	LogLevel     logging.Level        `yaml:"log_level"`
	LogJSON      bool                 `yaml:"log_json"`
	PollInterval string               `yaml:"poll_interval"`
	Matcher      series.MatcherConfig `yaml:"matcher"`
	Store        store.Config         `yaml:"store"`
	Engine       engine.Config        `yaml:"engine"`
	Postgres     store.PostgresConfig `yaml:"postgres"`
	Redis        queue.RedisConfig    `yaml:"redis"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	fileCfg := fileConfig{
		LogLevel: cfg.LogLevel,
		LogJSON:  cfg.LogJSON,
		Matcher:  cfg.Matcher,
		Store:    cfg.Store,
		Engine:   cfg.Engine,
		Postgres: cfg.Postgres,
		Redis:    cfg.Redis,
	}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	cfg.LogLevel = fileCfg.LogLevel
	cfg.LogJSON = fileCfg.LogJSON
	cfg.Matcher = fileCfg.Matcher
	cfg.Store = fileCfg.Store
	cfg.Engine = fileCfg.Engine
	cfg.Postgres = fileCfg.Postgres
	cfg.Redis = fileCfg.Redis

	if fileCfg.PollInterval != "" {
		interval, err := time.ParseDuration(fileCfg.PollInterval)
		if err != nil {
			return fmt.Errorf("parsing poll_interval: %w", err)
		}
		cfg.PollInterval = interval
	}
	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("FFS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = logging.Level(v)
	}
	if v := os.Getenv("FFS_LOG_JSON"); v == "true" || v == "1" {
		cfg.LogJSON = true
	}
	if v := os.Getenv("FFS_POLL_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = interval
		}
	}

	if v := os.Getenv("FFS_DB_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FFS_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FFS_DB_NAME"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FFS_DB_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FFS_DB_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FFS_DB_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}

	if v := os.Getenv("FFS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FFS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FFS_REDIS_KEY"); v != "" {
		cfg.Redis.Key = v
	}
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	m := c.Matcher
	if m.ConfirmThreshold <= m.RejectThreshold {
		return fmt.Errorf("matcher confirm_threshold (%.2f) must exceed reject_threshold (%.2f)",
			m.ConfirmThreshold, m.RejectThreshold)
	}
	if m.ConfirmThreshold > 1 || m.RejectThreshold < 0 {
		return fmt.Errorf("matcher thresholds must stay within [0, 1]")
	}
	if m.TitleFilterThreshold < 0 || m.TitleFilterThreshold > 1 {
		return fmt.Errorf("matcher title_filter_threshold must stay within [0, 1]")
	}
	if m.TieDelta < 0 {
		return fmt.Errorf("matcher tie_delta must not be negative")
	}
	w := m.Weights
	if w.Title < 0 || w.Interval < 0 || w.Participants < 0 || w.Topics < 0 {
		return fmt.Errorf("matcher weights must not be negative")
	}
	if w.Title+w.Interval+w.Participants+w.Topics <= 0 {
		return fmt.Errorf("matcher weights must sum to a positive value")
	}
	if c.Store.DecayFactor <= 0 || c.Store.DecayFactor > 1 {
		return fmt.Errorf("store decay_factor must be in (0, 1]")
	}
	if c.Store.Interval.Tolerance <= 0 || c.Store.Interval.Tolerance >= 1 {
		return fmt.Errorf("interval tolerance must be in (0, 1)")
	}
	return nil
}

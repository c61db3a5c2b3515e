// Package config loads the toodle library configuration from TOML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kimhsiao/toodle/internal/logging"
)

const (
	EnvConfigPath  = "TOODLE_CONFIG"
	EnvLogLevel    = "TOODLE_LOG_LEVEL"
	EnvSyncTimeout = "TOODLE_SYNC_TIMEOUT"
)

// Config is the top-level configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Store    StoreConfig    `toml:"store"`
	Sync     SyncConfig     `toml:"sync"`
	Boundary BoundaryConfig `toml:"boundary"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type StoreConfig struct {
	BusyTimeoutMS int `toml:"busy_timeout_ms"`
}

type SyncConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Addr           string `toml:"addr"`
	// Strategy is "last_write_wins" or "manual". Manual keeps the local copy
	// and logs every conflict for review.
	Strategy string `toml:"strategy"`
}

const (
	StrategyLastWriteWins = "last_write_wins"
	StrategyManual        = "manual"
)

// BoundaryConfig controls how handle contract violations are treated.
type BoundaryConfig struct {
	AbortOnContractViolation bool `toml:"abort_on_contract_violation"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:   LogConfig{Level: "info"},
		Store: StoreConfig{BusyTimeoutMS: 5000},
		Sync:  SyncConfig{TimeoutSeconds: 30, Addr: ":8091", Strategy: StrategyLastWriteWins},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by TOODLE_CONFIG, if any.
func LoadFromEnv() (Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

func applyEnvOverrides(cfg *Config) error {
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	if raw := os.Getenv(EnvSyncTimeout); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSyncTimeout, err)
		}
		cfg.Sync.TimeoutSeconds = secs
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Store.BusyTimeoutMS < 0 {
		return fmt.Errorf("store.busy_timeout_ms must be >= 0, got %d", c.Store.BusyTimeoutMS)
	}
	if c.Sync.TimeoutSeconds <= 0 {
		return fmt.Errorf("sync.timeout_seconds must be > 0, got %d", c.Sync.TimeoutSeconds)
	}
	switch c.Sync.Strategy {
	case StrategyLastWriteWins, StrategyManual:
	default:
		return fmt.Errorf("sync.strategy must be %q or %q, got %q", StrategyLastWriteWins, StrategyManual, c.Sync.Strategy)
	}
	return nil
}

// LogLevel returns the parsed log level; Validate guarantees it parses.
func (c Config) LogLevel() logging.LogLevel {
	lvl, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return lvl
}

// SyncTimeout returns the sync round-trip bound.
func (c Config) SyncTimeout() time.Duration {
	return time.Duration(c.Sync.TimeoutSeconds) * time.Second
}

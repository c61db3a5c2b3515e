package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/toodle/internal/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toodle.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel())
	assert.Equal(t, 30*time.Second, cfg.SyncTimeout())
	assert.Equal(t, StrategyLastWriteWins, cfg.Sync.Strategy)
	assert.False(t, cfg.Boundary.AbortOnContractViolation)
}

func TestLoad_file(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[sync]
timeout_seconds = 5
strategy = "manual"

[boundary]
abort_on_contract_violation = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, logging.LevelDebug, cfg.LogLevel())
	assert.Equal(t, 5*time.Second, cfg.SyncTimeout())
	assert.Equal(t, StrategyManual, cfg.Sync.Strategy)
	assert.True(t, cfg.Boundary.AbortOnContractViolation)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5000, cfg.Store.BusyTimeoutMS)
	assert.Equal(t, ":8091", cfg.Sync.Addr)
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvSyncTimeout, "12")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, cfg.LogLevel())
	assert.Equal(t, 12*time.Second, cfg.SyncTimeout())
}

func TestLoad_errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "config load failed")

	_, err = Load(writeConfig(t, "[log\nlevel="))
	assert.ErrorContains(t, err, "config parse failed")

	_, err = Load(writeConfig(t, "[sync]\ntimeout_seconds = 0\n"))
	assert.ErrorContains(t, err, "timeout_seconds")

	_, err = Load(writeConfig(t, "[sync]\nstrategy = \"newest_name\"\n"))
	assert.ErrorContains(t, err, "sync.strategy")

	_, err = Load(writeConfig(t, "[log]\nlevel = \"loud\"\n"))
	assert.ErrorContains(t, err, "log.level")

	t.Setenv(EnvSyncTimeout, "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, EnvSyncTimeout)
}

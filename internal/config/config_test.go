package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/metalsnapd/internal/config"
	"codeberg.org/mutker/metalsnapd/internal/errors"
	"codeberg.org/mutker/metalsnapd/internal/logger"
	"codeberg.org/mutker/metalsnapd/internal/schedule"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metalsnapd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resetArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	os.Args = append([]string{"metalsnapd"}, args...)
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestLoad(t *testing.T) {
	resetArgs(t)
	path := writeConfigFile(t, `
api_key = "secret"
times = ["18:00", "09:00", "13:30"]
database = "/path/to/snapshots.db"
source_timeout = 10
log_level = "debug"
use_database_schedule = true
`)
	t.Setenv("METALSNAPD_CONFIG", path)
	t.Setenv("METALSNAPD_API_KEY", "")

	monitor, err := config.Load()
	require.NoError(t, err)
	cfg := monitor.Current()

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, []string{"18:00", "09:00", "13:30"}, cfg.Times)
	assert.Equal(t, "/path/to/snapshots.db", cfg.Database)
	assert.Equal(t, 10, cfg.SourceTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.UseDatabaseSchedule)
}

func TestLoadDefaults(t *testing.T) {
	resetArgs(t)
	t.Setenv("METALSNAPD_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("METALSNAPD_API_KEY", "from-env")

	// A missing explicit config file is an error; an absent default
	// file is not.
	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("METALSNAPD_CONFIG", "")
	monitor, err := config.Load()
	require.NoError(t, err)
	cfg := monitor.Current()

	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Empty(t, cfg.Times)
	assert.Equal(t, config.DefaultDBPath, cfg.Database)
	assert.Equal(t, config.DefaultSourceTimeout, cfg.SourceTimeout)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.False(t, cfg.UseDatabaseSchedule)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	resetArgs(t)
	t.Setenv("METALSNAPD_CONFIG", "")
	t.Setenv("METALSNAPD_API_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Equal(t, errors.ErrMissingConfig, errors.CodeOf(err))
}

func TestLoadRejectsInvalidTimes(t *testing.T) {
	resetArgs(t)
	path := writeConfigFile(t, `
api_key = "secret"
times = ["9:00"]
`)
	t.Setenv("METALSNAPD_CONFIG", path)

	_, err := config.Load()
	require.Error(t, err)
	assert.Equal(t, schedule.ErrInvalidTimeFormat, errors.CodeOf(err))
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	resetArgs(t)
	path := writeConfigFile(t, `
api_key = "secret"
log_level = "loud"
`)
	t.Setenv("METALSNAPD_CONFIG", path)

	_, err := config.Load()
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidLogLevel, errors.CodeOf(err))
}

func TestFlagsOverrideFile(t *testing.T) {
	resetArgs(t, "--log-level", "error", "--database", "/tmp/override.db")
	path := writeConfigFile(t, `
api_key = "secret"
log_level = "info"
database = "/from/file.db"
`)
	t.Setenv("METALSNAPD_CONFIG", path)

	monitor, err := config.Load()
	require.NoError(t, err)
	cfg := monitor.Current()

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "/tmp/override.db", cfg.Database)
}

func TestDebugFlagRaisesLogLevel(t *testing.T) {
	resetArgs(t, "--debug")
	path := writeConfigFile(t, `
api_key = "secret"
log_level = "warning"
`)
	t.Setenv("METALSNAPD_CONFIG", path)

	monitor, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", monitor.Current().LogLevel)
}

func TestReloadRejectsInvalidEdit(t *testing.T) {
	resetArgs(t)
	path := writeConfigFile(t, `
api_key = "secret"
times = ["09:00", "18:00"]
`)
	t.Setenv("METALSNAPD_CONFIG", path)

	monitor, err := config.Load()
	require.NoError(t, err)

	// An edit that fails validation must leave the current snapshot
	// untouched.
	require.NoError(t, os.WriteFile(path, []byte(`
api_key = "secret"
times = ["9:00"]
`), 0o600))
	require.NoError(t, monitor.Reload())
	assert.Equal(t, []string{"09:00", "18:00"}, monitor.Current().Times)

	// A valid edit takes effect.
	require.NoError(t, os.WriteFile(path, []byte(`
api_key = "secret"
times = ["13:30"]
`), 0o600))
	require.NoError(t, monitor.Reload())
	assert.Equal(t, []string{"13:30"}, monitor.Current().Times)
}

func TestCurrentReturnsIndependentCopies(t *testing.T) {
	resetArgs(t)
	path := writeConfigFile(t, `
api_key = "secret"
times = ["09:00", "18:00"]
`)
	t.Setenv("METALSNAPD_CONFIG", path)

	monitor, err := config.Load()
	require.NoError(t, err)

	first := monitor.Current()
	first.Times[0] = "mutated"

	assert.Equal(t, []string{"09:00", "18:00"}, monitor.Current().Times)
}

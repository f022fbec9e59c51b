package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Equal(t, "auto", cfg.DefaultMode)
	assert.Equal(t, uint64(DefaultErrorThreshold), cfg.ErrorThreshold)
	assert.Equal(t, DefaultTaintLogCapacity, cfg.TaintLogCapacity)
	assert.False(t, cfg.DebugLogging)
	assert.Empty(t, cfg.FlushSchedule)
	assert.Equal(t, ":8480", cfg.Diagnostics.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("should_load_yaml", func(t *testing.T) {
		path := writeConfigFile(t, "dispatch.yaml", `
default_mode: safe
error_threshold: 3
debug_logging: true
flush_schedule: "@every 30s"
diagnostics:
  enabled: true
  addr: ":9999"
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "safe", cfg.DefaultMode)
		assert.Equal(t, uint64(3), cfg.ErrorThreshold)
		assert.True(t, cfg.DebugLogging)
		assert.Equal(t, "@every 30s", cfg.FlushSchedule)
		assert.True(t, cfg.Diagnostics.Enabled)
		assert.Equal(t, ":9999", cfg.Diagnostics.Addr)
		// Unset fields keep their defaults.
		assert.Equal(t, DefaultTaintLogCapacity, cfg.TaintLogCapacity)
	})

	t.Run("should_load_toml", func(t *testing.T) {
		path := writeConfigFile(t, "dispatch.toml", `
default_mode = "unsafe"
taint_log_capacity = 50

[diagnostics]
enabled = true
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "unsafe", cfg.DefaultMode)
		assert.Equal(t, 50, cfg.TaintLogCapacity)
		assert.True(t, cfg.Diagnostics.Enabled)
	})

	t.Run("should_load_json", func(t *testing.T) {
		path := writeConfigFile(t, "dispatch.json", `{"default_mode":"secure_only","error_threshold":10}`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "secure_only", cfg.DefaultMode)
		assert.Equal(t, uint64(10), cfg.ErrorThreshold)
	})

	t.Run("should_reject_unknown_extension", func(t *testing.T) {
		path := writeConfigFile(t, "dispatch.ini", "default_mode=auto")
		_, err := LoadConfig(path)
		assert.ErrorIs(t, err, ErrUnsupportedConfigFormat)
	})

	t.Run("should_reject_missing_file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("should_reject_invalid_mode", func(t *testing.T) {
		path := writeConfigFile(t, "dispatch.yaml", "default_mode: turbo")
		_, err := LoadConfig(path)
		assert.ErrorIs(t, err, ErrInvalidExecutionMode)
	})
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "dispatch.yaml", "default_mode: safe\nerror_threshold: 3")

	t.Setenv("DISPATCH_DEFAULT_MODE", "unsafe")
	t.Setenv("DISPATCH_ERROR_THRESHOLD", "7")
	t.Setenv("DISPATCH_DEBUG_LOGGING", "true")
	t.Setenv("DISPATCH_DIAGNOSTICS_ADDR", ":7777")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "unsafe", cfg.DefaultMode)
	assert.Equal(t, uint64(7), cfg.ErrorThreshold)
	assert.True(t, cfg.DebugLogging)
	assert.Equal(t, ":7777", cfg.Diagnostics.Addr)
}

func TestLoadConfigEnvOverrideCastError(t *testing.T) {
	path := writeConfigFile(t, "dispatch.yaml", "default_mode: auto")
	t.Setenv("DISPATCH_ERROR_THRESHOLD", "not-a-number")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.ErrorThreshold = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidErrorThreshold)

	cfg = DefaultConfig()
	cfg.TaintLogCapacity = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidTaintCapacity)

	cfg = DefaultConfig()
	cfg.DefaultMode = "bogus"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidExecutionMode)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.DefaultMode = "safe"
	cfg.DebugLogging = true

	d, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, ModeSafe, d.ExecutionMode())
	assert.True(t, d.DebugLoggingEnabled())

	// Extra options win over config-derived ones.
	d, err = NewFromConfig(cfg, WithDefaultExecutionMode(ModeUnsafe))
	require.NoError(t, err)
	assert.Equal(t, ModeUnsafe, d.ExecutionMode())

	_, err = NewFromConfig(nil)
	assert.ErrorIs(t, err, ErrConfigNil)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 256, cfg.Session.MailboxSize)
	assert.Zero(t, cfg.Session.MaxDuration)
	assert.Equal(t, "forward-user", cfg.Session.DefaultScenario)
	assert.Equal(t, int64(32768), cfg.Signal.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.Signal.PingPeriod)
	assert.Equal(t, 10, cfg.RateLimit.Triggers)
	assert.Equal(t, time.Minute, cfg.RateLimit.Interval)
	assert.Empty(t, cfg.Auth.Secret)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := `
mode: debug
port: 9090
session:
  max_duration: 30m
  default_scenario: play-and-hangup
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("VOX_AUTH_SECRET", "s3cret")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.Session.MaxDuration)
	assert.Equal(t, "play-and-hangup", cfg.Session.DefaultScenario)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
}

func TestLoadFileRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: chaos\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
}

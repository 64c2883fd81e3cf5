package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson_AbsentKeysKeepValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"long_timeout": 2000000000, "retry_jitter": 0.1, "debug": true}`), 0o600))

	cfg := defaults()
	require.NoError(t, parseJson(cfg, []string{"-config=" + path}))

	assert.Equal(t, 2*time.Second, cfg.LongTimeout)
	assert.Equal(t, 0.1, cfg.RetryJitter)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.ServerBaseURL)
	assert.Equal(t, 30*time.Second, cfg.ShortTimeout)
}

func TestParseJson_ExplicitZeroOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_retries": 0, "balance_sync_interval": "0s"}`), 0o600))

	cfg := defaults()
	require.NoError(t, parseJson(cfg, []string{"-c", path}))
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, time.Duration(0), cfg.BalanceSyncInterval)
}

func TestParseJson_NoFlagNoChange(t *testing.T) {
	cfg := defaults()
	require.NoError(t, parseJson(cfg, []string{"-a", "http://x"}))
	assert.Equal(t, defaults(), cfg)
}

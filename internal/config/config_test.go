package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().MaxResendAttempts, cfg.MaxResendAttempts)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: wss://custom/ws\nmaxResendAttempts: 9\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://custom/ws", cfg.Endpoint)
	assert.Equal(t, 9, cfg.MaxResendAttempts)
	assert.Equal(t, Defaults().PingIntervalMs, cfg.PingIntervalMs, "unspecified keys keep their default")
}

func TestLoadJSONOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logLevel":"debug","verboseMessageLogs":true}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", string(cfg.LogLevel))
	assert.True(t, cfg.VerboseMessageLogs)
}

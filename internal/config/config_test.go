package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileYAMLAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "race.yaml")
	content := `
environment: production
transport:
  endpoint: wss://transactor.example.com
keystore:
  directory: ${RACE_KEY_DIR:/var/race/keys}
reconnect:
  max_retries: 10
logging: {}
metrics:
  enabled: true
  port: 9100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "wss://transactor.example.com", cfg.Transport.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Transport.RequestTimeout)
	assert.Equal(t, "/var/race/keys", cfg.KeyStore.Directory)
	assert.Equal(t, "encrypted-file", cfg.KeyStore.Type)
	assert.Equal(t, 10, cfg.Reconnect.MaxRetries)
	assert.Equal(t, 3, cfg.Reconnect.AccountFetchRetries)
	assert.Equal(t, 3*time.Second, cfg.Reconnect.AccountFetchBackoff)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromFileSubstitutesEnvVar(t *testing.T) {
	require.NoError(t, os.Setenv("RACE_KEY_DIR", "/custom/keys"))
	defer os.Unsetenv("RACE_KEY_DIR")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "race.yaml")
	content := `
keystore:
  directory: ${RACE_KEY_DIR:/var/race/keys}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/custom/keys", cfg.KeyStore.Directory)
}

func TestLoadFromFileMissingReturnsError(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSaveToFileThenLoadRoundTrips(t *testing.T) {
	cfg := &Config{
		Environment: "staging",
		Transport:   &TransportConfig{Endpoint: "wss://x"},
		KeyStore:    &KeyStoreConfig{Directory: "/keys"},
	}
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", loaded.Environment)
	assert.Equal(t, "wss://x", loaded.Transport.Endpoint)
}

func TestSubstituteEnvVarsDefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("RACE_DOES_NOT_EXIST")
	got := SubstituteEnvVars("${RACE_DOES_NOT_EXIST:fallback}")
	assert.Equal(t, "fallback", got)
}

func TestGetEnvironmentDefaultsToDevelopment(t *testing.T) {
	os.Unsetenv("RACE_ENV")
	os.Unsetenv("ENVIRONMENT")
	assert.Equal(t, "development", GetEnvironment())
	assert.True(t, IsDevelopment())
	assert.False(t, IsProduction())
}

func TestGetEnvironmentReadsRaceEnv(t *testing.T) {
	require.NoError(t, os.Setenv("RACE_ENV", "Production"))
	defer os.Unsetenv("RACE_ENV")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProduction())
}

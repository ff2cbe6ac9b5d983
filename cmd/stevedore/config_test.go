package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every STEVEDORE_ variable for the duration of a test so
// the environment on the CI host cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STEVEDORE_STATE_DIR",
		"STEVEDORE_DOCKER_HOST",
		"STEVEDORE_HISTORY_ENABLED",
		"STEVEDORE_HISTORY_DSN",
		"STEVEDORE_REGISTRY_DOMAIN",
		"STEVEDORE_REGISTRY_USERNAME",
		"STEVEDORE_REGISTRY_PASSWORD",
		"STEVEDORE_REGISTRY_RELEASE_TAG",
		"STEVEDORE_LOG_LEVEL",
		"STEVEDORE_LOG_FORMAT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/stevedore/state", cfg.State.Dir)
	assert.Equal(t, "", cfg.Docker.Host)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/var/lib/stevedore/history.db", cfg.History.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
state:
  dir: /tmp/stevedore-test/state
history:
  enabled: false
registry:
  domain: registry.example.com
  username: deployer
log:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := LoadConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/stevedore-test/state", cfg.State.Dir)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "registry.example.com", cfg.Registry.Domain)
	assert.Equal(t, "deployer", cfg.Registry.Username)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	// Unspecified keys keep their defaults.
	assert.Equal(t, "/var/lib/stevedore/history.db", cfg.History.DSN)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("STEVEDORE_STATE_DIR", "/custom/state")
	t.Setenv("STEVEDORE_REGISTRY_PASSWORD", "supersecret")
	t.Setenv("STEVEDORE_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/custom/state", cfg.State.Dir)
	assert.Equal(t, "supersecret", cfg.Registry.Password)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/stevedore/state", cfg.State.Dir)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("state: [[["), 0644))

	_, err := LoadConfig(configFile)
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{name: "json info", level: "info", format: "json"},
		{name: "text debug", level: "debug", format: "text"},
		{name: "warning alias", level: "warning", format: "json"},
		{name: "unknown level falls back", level: "verbose", format: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Log: LogConfig{Level: tt.level, Format: tt.format}}
			logger := SetupLogger(cfg)
			require.NotNil(t, logger)
		})
	}
}

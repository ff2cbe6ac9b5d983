package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	State    StateConfig    `mapstructure:"state"`
	Docker   DockerConfig   `mapstructure:"docker"`
	History  HistoryConfig  `mapstructure:"history"`
	Registry RegistryConfig `mapstructure:"registry"`
	Log      LogConfig      `mapstructure:"log"`
}

// StateConfig holds the persisted composition layout.
type StateConfig struct {
	// Dir is the directory holding one <role>.compose file per role.
	Dir string `mapstructure:"dir"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// HistoryConfig holds invocation history configuration.
type HistoryConfig struct {
	// Enabled turns invocation recording on. Recording is best-effort and
	// never fails a deployment.
	Enabled bool `mapstructure:"enabled"`

	// DSN is the SQLite database path.
	DSN string `mapstructure:"dsn"`
}

// RegistryConfig holds release registry defaults for freeze. Each field can
// be overridden per invocation by the matching flag; the password is
// normally supplied via STEVEDORE_REGISTRY_PASSWORD.
type RegistryConfig struct {
	Domain     string `mapstructure:"domain"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	ReleaseTag string `mapstructure:"release_tag"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("state.dir", "/var/lib/stevedore/state")
	v.SetDefault("docker.host", "")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", "/var/lib/stevedore/history.db")
	v.SetDefault("registry.domain", "")
	v.SetDefault("registry.username", "")
	v.SetDefault("registry.password", "")
	v.SetDefault("registry.release_tag", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("STEVEDORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

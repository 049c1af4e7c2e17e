package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prodkit/prodkit/internal/core/manifest"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all tool configuration.
type Config struct {
	SSH     SSHConfig     `mapstructure:"ssh"`
	Sync    SyncConfig    `mapstructure:"sync"`
	History HistoryConfig `mapstructure:"history"`
	App     AppConfig     `mapstructure:"app"`
	Log     LogConfig     `mapstructure:"log"`
}

// SSHConfig holds connection settings.
type SSHConfig struct {
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// SyncConfig holds file upload settings.
type SyncConfig struct {
	ProgressEvery  int      `mapstructure:"progress_every"`
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AppConfig holds settings about the deployed application.
type AppConfig struct {
	Port int `mapstructure:"port"`
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
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.connect_timeout", "30s")
	v.SetDefault("ssh.command_timeout", "120s")
	v.SetDefault("sync.progress_every", 10)
	v.SetDefault("sync.ignore_patterns", manifest.DefaultIgnorePatterns)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", defaultHistoryPath())
	v.SetDefault("app.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("PRODKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// defaultHistoryPath keeps the run database in the user's config
// directory so it survives across projects.
func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "prodkit-history.db"
	}
	return dir + "/prodkit/history.db"
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// It writes to stderr so command output stays clean on stdout.
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
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

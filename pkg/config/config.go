// Package config holds runtime configuration for the evaluation tooling.
package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config holds tool configuration.
type Config struct {
	LogLevel     string
	RulebookPath string // empty means the bundled TRLC rulebook
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		LogLevel:     logLevel,
		RulebookPath: os.Getenv("RULEBOOK_PATH"),
	}
}

// SlogLevel maps the configured level onto slog's scale. Unknown levels
// fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

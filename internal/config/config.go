package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/thomasrohde/celviz/pkg/evaluator"
)

// Config holds all configuration for the celviz CLI
type Config struct {
	// Logging configuration
	LogLevel  string `env:"CELVIZ_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CELVIZ_LOG_FORMAT" envDefault:"console"`

	// Evaluation limits. Zero disables a limit.
	MaxDepth int   `env:"CELVIZ_MAX_DEPTH" envDefault:"256"`
	MaxSteps int64 `env:"CELVIZ_MAX_STEPS" envDefault:"100000"`

	// REPL configuration
	HistoryFile string `env:"CELVIZ_HISTORY" envDefault:".celviz_history"`

	// Watch configuration
	WatchDebounce time.Duration `env:"CELVIZ_WATCH_DEBOUNCE" envDefault:"100ms"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("CELVIZ_LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("CELVIZ_LOG_FORMAT must be one of: json, console")
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("CELVIZ_MAX_DEPTH must be non-negative")
	}

	if c.MaxSteps < 0 {
		return fmt.Errorf("CELVIZ_MAX_STEPS must be non-negative")
	}

	if c.WatchDebounce < 0 {
		return fmt.Errorf("CELVIZ_WATCH_DEBOUNCE must be non-negative")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// Budget returns the evaluation limits
func (c *Config) Budget() evaluator.Budget {
	return evaluator.Budget{MaxDepth: c.MaxDepth, MaxSteps: c.MaxSteps}
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{LogLevel=%s, LogFormat=%s, MaxDepth=%d, MaxSteps=%d, HistoryFile=%s, WatchDebounce=%s}",
		c.LogLevel,
		c.LogFormat,
		c.MaxDepth,
		c.MaxSteps,
		c.HistoryFile,
		c.WatchDebounce,
	)
}

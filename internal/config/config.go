// Package config loads tool configuration with a three-layer hierarchy:
// built-in defaults, then `.mdvet.yaml` in the work dir, then MDVET_-prefixed
// environment variables. Invalid configuration fails closed; the tool never
// runs with a half-understood config.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete tool configuration.
type Config struct {
	// Include lists doc path globs, relative to the work dir.
	Include []string `koanf:"include"`

	// Timeout bounds each example evaluation.
	Timeout time.Duration `koanf:"timeout"`

	Cache    CacheConfig    `koanf:"cache"`
	Report   ReportConfig   `koanf:"report"`
	Log      LogConfig      `koanf:"log"`
	Generate GenerateConfig `koanf:"generate"`

	// MaxParallel bounds concurrent document checks.
	MaxParallel int `koanf:"max_parallel"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	// Dir is the cache root, relative to the work dir.
	Dir string `koanf:"dir"`

	// Mode is readwrite, refresh or off.
	Mode string `koanf:"mode"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	// Format is text or json.
	Format string `koanf:"format"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `koanf:"level"`
}

// GenerateConfig controls the generate command.
type GenerateConfig struct {
	// Model is the generation model name.
	Model string `koanf:"model"`

	// Endpoint is the API base URL.
	Endpoint string `koanf:"endpoint"`

	// MaxAttempts bounds retries per request.
	MaxAttempts int `koanf:"max_attempts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Include:     []string{"*.md"},
		Timeout:     5 * time.Second,
		MaxParallel: 4,
		Cache: CacheConfig{
			Dir:  ".mdvet/cache",
			Mode: "readwrite",
		},
		Report: ReportConfig{
			Format: "text",
		},
		Log: LogConfig{
			Level: "warn",
		},
		Generate: GenerateConfig{
			Model:       "gemini-2.5-flash",
			Endpoint:    "https://generativelanguage.googleapis.com",
			MaxAttempts: 3,
		},
	}
}

// Validate checks field ranges. It does not touch the filesystem.
func (c *Config) Validate() error {
	if len(c.Include) == 0 {
		return errors.New("include must list at least one glob")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("max_parallel must be >= 1, got %d", c.MaxParallel)
	}
	switch c.Cache.Mode {
	case "readwrite", "refresh", "off":
	default:
		return fmt.Errorf("cache.mode must be readwrite|refresh|off, got %q", c.Cache.Mode)
	}
	if c.Cache.Mode != "off" && c.Cache.Dir == "" {
		return errors.New("cache.dir must be set unless cache.mode is off")
	}
	switch c.Report.Format {
	case "text", "json":
	default:
		return fmt.Errorf("report.format must be text|json, got %q", c.Report.Format)
	}
	if c.Generate.MaxAttempts < 1 {
		return fmt.Errorf("generate.max_attempts must be >= 1, got %d", c.Generate.MaxAttempts)
	}
	return nil
}

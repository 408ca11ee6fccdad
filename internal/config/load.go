package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "MDVET_"

	// FileName is the per-project config file, looked up in the work dir.
	FileName = ".mdvet.yaml"
)

// Load reads configuration for a run rooted at workDir.
//
// Hierarchy (highest precedence last):
//
//  1. Built-in defaults
//  2. {workDir}/.mdvet.yaml, if present (or the explicit path, which must exist)
//  3. Environment variables (MDVET_ prefix)
//
// Environment mapping resolves nesting/underscore ambiguity against the known
// config keys, so MDVET_CACHE_MODE maps to "cache.mode" while
// MDVET_MAX_PARALLEL maps to "max_parallel".
func Load(workDir, explicitPath string) (*Config, error) {
	k := koanf.New(".")

	path := explicitPath
	optional := false
	if path == "" {
		path = filepath.Join(workDir, FileName)
		optional = true
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	case optional && os.IsNotExist(statErr):
		// No project config; defaults plus env apply.
	default:
		return nil, fmt.Errorf("loading config %s: %w", path, statErr)
	}

	envLookup := buildEnvLookup()

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			key = strings.ToLower(key)

			if koanfKey, ok := envLookup[key]; ok {
				return koanfKey, value
			}
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// knownKeys are the dotted koanf keys of every Config field. Kept literal so
// env mapping works even for keys absent from the YAML layer.
var knownKeys = []string{
	"include",
	"timeout",
	"max_parallel",
	"cache.dir",
	"cache.mode",
	"report.format",
	"log.level",
	"generate.model",
	"generate.endpoint",
	"generate.max_attempts",
}

// buildEnvLookup maps env-style keys (dots replaced by underscores) back to
// dotted koanf keys, e.g. "cache_mode" -> "cache.mode".
func buildEnvLookup() map[string]string {
	lookup := make(map[string]string, len(knownKeys))
	for _, key := range knownKeys {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}
	return lookup
}

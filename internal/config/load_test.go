package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdvet/internal/config"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(content), 0o644))
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := config.Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"*.md"}, cfg.Include)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "readwrite", cfg.Cache.Mode)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.Equal(t, 4, cfg.MaxParallel)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
include:
  - docs/*.md
timeout: 10s
max_parallel: 2
cache:
  mode: refresh
report:
  format: json
`)

	cfg, err := config.Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/*.md"}, cfg.Include)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxParallel)
	assert.Equal(t, "refresh", cfg.Cache.Mode)
	assert.Equal(t, "json", cfg.Report.Format)
	// Untouched fields keep their defaults.
	assert.Equal(t, ".mdvet/cache", cfg.Cache.Dir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cache:\n  mode: refresh\n")

	t.Setenv("MDVET_CACHE_MODE", "off")
	t.Setenv("MDVET_MAX_PARALLEL", "8")

	cfg, err := config.Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "off", cfg.Cache.Mode)
	assert.Equal(t, 8, cfg.MaxParallel)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := config.Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValuesFailClosed(t *testing.T) {
	cases := map[string]string{
		"bad cache mode":   "cache:\n  mode: sometimes\n",
		"bad format":       "report:\n  format: xml\n",
		"zero timeout":     "timeout: 0s\n",
		"no includes":      "include: []\n",
		"bad max parallel": "max_parallel: 0\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, content)
			_, err := config.Load(dir, "")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cache: [unterminated\n")
	_, err := config.Load(dir, "")
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probeguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Strict())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
mode: lenient
cycle_policy: root
allowed_targets:
  - com/example/Helpers.format
  - com/example/util/**.*
targets_file: targets.yaml
log_level: debug
parallelism: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Strict())
	assert.Equal(t, "root", cfg.CyclePolicy)
	assert.Equal(t, []string{"com/example/Helpers.format", "com/example/util/**.*"}, cfg.AllowedTargets)
	assert.Equal(t, "targets.yaml", cfg.TargetsFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Parallelism)
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "parallelism: 2\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Strict())
	assert.Equal(t, "reachable", cfg.CyclePolicy)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown mode", content: "mode: permissive\n"},
		{name: "unknown cycle policy", content: "cycle_policy: everything\n"},
		{name: "unknown log level", content: "log_level: trace\n"},
		{name: "negative parallelism", content: "parallelism: -1\n"},
		{name: "empty target", content: "allowed_targets: ['']\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "mode: [strict\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

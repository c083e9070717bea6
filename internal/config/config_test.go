package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsFailFastWithBuiltinThresholds(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.MultiError)
	assert.Equal(t, 0, cfg.MaxParseDepth)
	assert.Equal(t, uint64(0), cfg.CallThreshold)
	assert.Equal(t, "native", cfg.Target)
}

func TestLoad_OverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vais.yaml")
	require.NoError(t, os.WriteFile(path, []byte("multi_error: true\ncall_threshold: 50\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.MultiError)
	assert.Equal(t, uint64(50), cfg.CallThreshold)
	assert.Equal(t, "native", cfg.Target) // untouched field keeps the default
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzerNames(settings *Settings) map[string]bool {
	names := map[string]bool{}
	for _, a := range analyzers(settings) {
		names[a.Name] = true
	}
	return names
}

func TestEmbeddedSettings(t *testing.T) {
	t.Setenv(ConfigEnv, "")

	settings, err := loadSettings()
	require.NoError(t, err)
	assert.Contains(t, settings.Staticcheck, "SA4006")

	names := analyzerNames(settings)
	assert.True(t, names["noosexit"])
	assert.True(t, names["nilerr"])
	assert.True(t, names["SA4006"])
}

func TestSettingsFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"staticcheck": ["SA1000"]}`), 0o600))
	t.Setenv(ConfigEnv, path)

	settings, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, []string{"SA1000"}, settings.Staticcheck)

	names := analyzerNames(settings)
	assert.True(t, names["SA1000"])
	assert.False(t, names["SA4006"])
}

func TestSettingsFromMissingFile(t *testing.T) {
	t.Setenv(ConfigEnv, filepath.Join(t.TempDir(), "absent.json"))

	_, err := loadSettings()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

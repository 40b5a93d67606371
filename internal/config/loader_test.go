package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the errtrail config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "errtrail")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")

	yamlContent := `tracker:
  sample_rate: 0.25
  max_depth: 20
history:
  capacity: 10
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.Tracker.SampleRate)
	assert.Equal(t, 20, cfg.Tracker.MaxDepth)
	assert.Equal(t, 10, cfg.History.Capacity)
	// Untouched sections keep defaults.
	assert.Equal(t, 5, cfg.Snapshot.MaxDepth)
	assert.Equal(t, 0.7, cfg.History.SimilarityThreshold)
}

func TestLoadWithFile_ExplicitZeroSampleRate(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tracker:\n  sample_rate: 0\n"), 0600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Tracker.SampleRate)
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tracker:\n  max_depth: 20\n"), 0600))

	t.Setenv("ERRTRAIL_TRACKER_MAX_DEPTH", "7")
	t.Setenv("ERRTRAIL_REPORT_RATE_LIMIT", "2.5")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Tracker.MaxDepth)
	assert.Equal(t, 2.5, cfg.Report.RateLimit)
}

func TestLoadWithFile_InvalidValueRejected(t *testing.T) {
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tracker:\n  sample_rate: 3\n"), 0600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestLoadWithFile_NaNSampleRateFromEnvRejected(t *testing.T) {
	dir := setupTestHome(t)
	t.Setenv("ERRTRAIL_TRACKER_SAMPLE_RATE", "NaN")

	_, err := LoadWithFile(filepath.Join(dir, "config.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tracker:\n  max_depth: 20\n"), 0644))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_PathOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)

	_, err := LoadWithFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path validation failed")
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	assert.Equal(t, "1.5s", d.Duration().String())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

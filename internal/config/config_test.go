package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", false)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, []string{"**/*.java"}, cfg.Scan.Include)
	assert.GreaterOrEqual(t, cfg.Scan.Workers, 1)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.Debounce)
	assert.True(t, cfg.Model.JDKStubs)
	assert.Equal(t, 4096, cfg.Model.CacheSize)
	assert.Equal(t, ".fluentgen", cfg.Storage.Dir)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
scan:
  include:
    - "src/main/java/**/*.java"
  exclude:
    - "**/generated/**"
  workers: 2
  debounce: 2s
model:
  jdk_stubs: false
storage:
  dir: ~
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"src/main/java/**/*.java"}, cfg.Scan.Include)
	assert.Equal(t, []string{"**/generated/**"}, cfg.Scan.Exclude)
	assert.Equal(t, 2, cfg.Scan.Workers)
	assert.Equal(t, 2*time.Second, cfg.Scan.Debounce)
	assert.False(t, cfg.Model.JDKStubs)
	assert.Equal(t, ".fluentgen", cfg.Storage.Dir, "null values keep the default")
}

func TestLoad_Environment(t *testing.T) {
	path := writeConfig(t, "scan:\n  workers: 2\n")
	t.Setenv("FLUENTGEN_SCAN_WORKERS", "8")
	t.Setenv("FLUENTGEN_LOG_JSON", "true")
	t.Setenv("FLUENTGEN_MODEL_CACHE_SIZE", "16")
	t.Setenv("FLUENTGEN_SCAN_EXCLUDE", "**/test/**,**/gen/**")

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Scan.Workers, "environment wins over the file")
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 16, cfg.Model.CacheSize)
	assert.Equal(t, []string{"**/test/**", "**/gen/**"}, cfg.Scan.Exclude)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(missing, true)
	assert.Error(t, err)

	cfg, err := Load(missing, false)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"UnknownLevel", "log:\n  level: loud\n"},
		{"ZeroWorkers", "scan:\n  workers: 0\n"},
		{"ZeroCache", "model:\n  cache_size: 0\n"},
		{"NegativeDebounce", "scan:\n  debounce: -1s\n"},
		{"BrokenYAML", "scan: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), true)
			assert.Error(t, err)
		})
	}
}

func TestConfig_StoragePath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, filepath.Join("/repo", ".fluentgen"), cfg.StoragePath("/repo"))

	cfg.Storage.Dir = "/var/lib/fluentgen"
	assert.Equal(t, "/var/lib/fluentgen", cfg.StoragePath("/repo"))
}

func TestTransformEnvKey(t *testing.T) {
	t.Parallel()

	key, value := transformEnvKey("FLUENTGEN_MODEL_JDK_STUBS", "false")
	assert.Equal(t, "model.jdk_stubs", key)
	assert.Equal(t, "false", value)

	key, _ = transformEnvKey("FLUENTGEN_LOG", "x")
	assert.Empty(t, key)
}

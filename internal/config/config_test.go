package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)

	assert.Equal(t, "1s", cfg.Watcher.Debounce)
	assert.Equal(t, "5s", cfg.Watcher.GracePeriod)
	assert.Equal(t, "", cfg.Watcher.PollInterval)

	assert.Equal(t, "", cfg.Embeddings.Provider)
	assert.Equal(t, 0, cfg.Embeddings.Dimensions)
	assert.Equal(t, 32, cfg.Embeddings.BatchSize)

	assert.Equal(t, "cosine", cfg.Vector.Metric)
	assert.Equal(t, "f32", cfg.Vector.Quantization)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestWatcherConfig_DurationDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "1s", cfg.Watcher.Debounce)
	assert.Equal(t, "5s", cfg.Watcher.GracePeriod)
	assert.Equal(t, int64(0), cfg.Watcher.PollIntervalDuration().Nanoseconds())
}

func TestWatcherConfig_BadDurationFallsBack(t *testing.T) {
	w := WatcherConfig{Debounce: "not-a-duration"}
	assert.Equal(t, w.DebounceDuration().String(), "1s")
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "1s", cfg.Watcher.Debounce)
	assert.Equal(t, tmpDir, cfg.Paths.Root)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
version: 1
watcher:
  debounce: 2s
  grace_period: 10s
embeddings:
  provider: static
  model: minilm
  dimensions: 384
vector:
  metric: cosine
  quantization: f16
server:
  transport: stdio
  log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(yamlContent), 0o644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "2s", cfg.Watcher.Debounce)
	assert.Equal(t, "10s", cfg.Watcher.GracePeriod)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "minilm", cfg.Embeddings.Model)
	assert.Equal(t, 384, cfg.Embeddings.Dimensions)
	assert.Equal(t, "f16", cfg.Vector.Quantization)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_PartialYaml_MergesWithDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
embeddings:
  provider: ollama
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(yamlContent), 0o644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	// Untouched fields keep their defaults.
	assert.Equal(t, "1s", cfg.Watcher.Debounce)
	assert.Equal(t, "cosine", cfg.Vector.Metric)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("not: valid: yaml: ["), 0o644))

	_, err := Load(tmpDir)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides_TakePrecedenceOverFile(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
embeddings:
  provider: static
server:
  log_level: info
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(yamlContent), 0o644))

	t.Setenv("ROUX_EMBEDDINGS_PROVIDER", "ollama")
	t.Setenv("ROUX_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestValidate_RejectsBadWatcherDurations(t *testing.T) {
	cfg := NewConfig()
	cfg.Watcher.Debounce = "nonsense"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadMetric(t *testing.T) {
	cfg := NewConfig()
	cfg.Vector.Metric = "euclidean"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadQuantization(t *testing.T) {
	cfg := NewConfig()
	cfg.Vector.Quantization = "int8"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadTransport(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.Transport = "http"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.Validate())
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := NewConfig()
	cfg.Embeddings.Provider = "static"
	cfg.Embeddings.Dimensions = 768

	path := filepath.Join(tmpDir, ConfigFileName)
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "static", loaded.Embeddings.Provider)
	assert.Equal(t, 768, loaded.Embeddings.Dimensions)
}

func TestFindProjectRoot_FindsConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("version: 1\n"), 0o644))

	nested := filepath.Join(tmpDir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_FindsGitDir(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o755))

	nested := filepath.Join(tmpDir, "notes", "daily")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_FallsBackToStartDir(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "x", "y")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, nested, root)
}

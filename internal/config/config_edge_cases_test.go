package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFindProjectRoot_NonExistentDir_ReturnsAbsPath covers the
// filepath.Abs-always-succeeds behavior for a path that doesn't exist.
func TestFindProjectRoot_NonExistentDir_ReturnsAbsPath(t *testing.T) {
	nonExistent := "/nonexistent/path/that/does/not/exist"

	root, err := FindProjectRoot(nonExistent)

	require.NoError(t, err)
	assert.NotEmpty(t, root)
}

func TestFindProjectRoot_DeepNesting_FindsGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	deepNested := filepath.Join(tmpDir, "a", "b", "c", "d", "e", "f", "g", "h")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	require.NoError(t, os.MkdirAll(deepNested, 0o755))

	root, err := FindProjectRoot(deepNested)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_RelativePath_ResolvesToAbsolute(t *testing.T) {
	tmpDir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	defer func() { _ = os.Chdir(cwd) }()

	root, err := FindProjectRoot(".")

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root))
}

func TestFindProjectRoot_ConfigFileTakesPrecedenceOverGit(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, ".git"), 0o755))

	inner := filepath.Join(tmpDir, "vault")
	require.NoError(t, os.MkdirAll(inner, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inner, ConfigFileName), []byte("version: 1\n"), 0o644))

	nested := filepath.Join(inner, "notes")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := FindProjectRoot(nested)

	require.NoError(t, err)
	assert.Equal(t, inner, root)
}

func TestLoad_ExcludePatterns_OverrideNotAppend(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
paths:
  exclude:
    - "**/drafts/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(yamlContent), 0o644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"**/drafts/**"}, cfg.Paths.Exclude)
}

func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
embeddings:
  dimensions: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(yamlContent), 0o644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Embeddings.BatchSize)
}

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits behave differently on windows")
	}

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))
	require.NoError(t, os.Chmod(path, 0o000))
	defer func() { _ = os.Chmod(path, 0o644) }()

	if os.Geteuid() == 0 {
		t.Skip("root ignores unix file permissions")
	}

	_, err := Load(tmpDir)
	assert.Error(t, err)
}

func TestConfig_JSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "static"
	cfg.Embeddings.Dimensions = 768

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, cfg.Embeddings.Provider, decoded.Embeddings.Provider)
	assert.Equal(t, cfg.Embeddings.Dimensions, decoded.Embeddings.Dimensions)
	assert.Equal(t, cfg.Vector.Metric, decoded.Vector.Metric)
}

func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	var cfg Config
	err := json.Unmarshal([]byte("{not valid json"), &cfg)
	assert.Error(t, err)
}

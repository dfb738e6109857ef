package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupConfig_NoConfigExists(t *testing.T) {
	tmpDir := t.TempDir()

	backupPath, err := BackupConfig(tmpDir)

	require.NoError(t, err)
	assert.Empty(t, backupPath)
}

func TestBackupConfig_BacksUpExistingConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	content := "version: 1\nembeddings:\n  provider: ollama\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	backupPath, err := BackupConfig(tmpDir)
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestBackupConfig_MultipleBackupsAreDistinct(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0o644))

	first, err := BackupConfig(tmpDir)
	require.NoError(t, err)

	time.Sleep(time.Second) // timestamp resolution is whole seconds

	require.NoError(t, os.WriteFile(configPath, []byte("version: 2\n"), 0o644))
	second, err := BackupConfig(tmpDir)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestListConfigBackups_EmptyWhenNoneExist(t *testing.T) {
	tmpDir := t.TempDir()

	backups, err := ListConfigBackups(tmpDir)

	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestListConfigBackups_ReturnsNewestFirst(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0o644))

	_, err := BackupConfig(tmpDir)
	require.NoError(t, err)
	time.Sleep(time.Second)

	require.NoError(t, os.WriteFile(configPath, []byte("version: 2\n"), 0o644))
	second, err := BackupConfig(tmpDir)
	require.NoError(t, err)

	backups, err := ListConfigBackups(tmpDir)
	require.NoError(t, err)
	require.NotEmpty(t, backups)
	assert.Equal(t, second, backups[0])
}

func TestCleanupOldBackups_KeepsOnlyMaxBackups(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	for i := 0; i < MaxBackups+2; i++ {
		require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0o644))
		_, err := BackupConfig(tmpDir)
		require.NoError(t, err)
		time.Sleep(time.Second)
	}

	backups, err := ListConfigBackups(tmpDir)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), MaxBackups)
}

func TestRestoreConfig_RestoresContentAndBacksUpCurrent(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	original := "version: 1\nembeddings:\n  provider: static\n"
	require.NoError(t, os.WriteFile(configPath, []byte(original), 0o644))

	backupPath, err := BackupConfig(tmpDir)
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	require.NoError(t, os.WriteFile(configPath, []byte("version: 2\n"), 0o644))

	require.NoError(t, RestoreConfig(tmpDir, backupPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestRestoreConfig_MissingBackupReturnsError(t *testing.T) {
	tmpDir := t.TempDir()

	err := RestoreConfig(tmpDir, filepath.Join(tmpDir, "does-not-exist.bak"))

	assert.Error(t, err)
}

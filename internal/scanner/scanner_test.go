package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func collect(t *testing.T, ch <-chan ScanResult) []ScanResult {
	t.Helper()
	var out []ScanResult
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestScan_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "hi")
	writeFile(t, root, "b.txt", "hi")

	s := New()
	ch, err := s.Scan(context.Background(), Options{RootDir: root, Extensions: []string{".md"}})
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
	assert.Equal(t, "a.md", results[0].File.RelativePath)
}

func TestScan_ExtensionMatchIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.MD", "hi")

	s := New()
	ch, err := s.Scan(context.Background(), Options{RootDir: root, Extensions: []string{".md"}})
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
}

func TestScan_ExcludesFixedDirectoriesAtAnyDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md", "hi")
	writeFile(t, root, ".git/skip.md", "hi")
	writeFile(t, root, "nested/node_modules/skip.md", "hi")
	writeFile(t, root, ".obsidian/skip.md", "hi")
	writeFile(t, root, ".roux/skip.md", "hi")

	s := New()
	ch, err := s.Scan(context.Background(), Options{RootDir: root, Extensions: []string{".md"}})
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
	assert.Equal(t, "keep.md", results[0].File.RelativePath)
}

func TestScan_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.md", "hi")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.md"), filepath.Join(root, "link.md")))

	s := New()
	ch, err := s.Scan(context.Background(), Options{RootDir: root, Extensions: []string{".md"}})
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
	assert.Equal(t, "real.md", results[0].File.RelativePath)
}

func TestScan_ReturnsAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "hi")

	s := New()
	ch, err := s.Scan(context.Background(), Options{RootDir: root, Extensions: []string{".md"}})
	require.NoError(t, err)

	results := collect(t, ch)
	require.Len(t, results, 1)
	assert.True(t, filepath.IsAbs(results[0].File.AbsPath))
}

func TestResolveSafe_RejectsEscape(t *testing.T) {
	root := t.TempDir()
	_, err := ResolveSafe(root, "../outside.md")
	assert.Error(t, err)
}

func TestResolveSafe_AllowsWithinRoot(t *testing.T) {
	root := t.TempDir()
	resolved, err := ResolveSafe(root, "notes/a.md")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))
}

func TestModTime(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "hi")
	mt, err := ModTime(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	assert.False(t, mt.IsZero())
}

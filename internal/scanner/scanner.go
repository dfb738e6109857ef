package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Scanner discovers indexable files under a vault's source root.
type Scanner struct{}

// New creates a Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan walks opts.RootDir recursively and streams every file whose
// extension is in opts.Extensions, skipping excluded directories and
// symlinks. The channel is closed when the walk completes or ctx is
// cancelled.
func (s *Scanner) Scan(ctx context.Context, opts Options) (<-chan ScanResult, error) {
	absRoot, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("scanner: resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scanner: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanner: root is not a directory: %s", absRoot)
	}

	allowed := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		allowed[strings.ToLower(ext)] = true
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)

		walkErr := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				results <- ScanResult{Error: err}
				return nil
			}
			if d.IsDir() {
				if p != absRoot && excludedDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type()&os.ModeSymlink != 0 {
				return nil
			}
			if !allowed[strings.ToLower(filepath.Ext(p))] {
				return nil
			}

			fi, statErr := d.Info()
			if statErr != nil {
				results <- ScanResult{Error: statErr}
				return nil
			}
			rel, relErr := filepath.Rel(absRoot, p)
			if relErr != nil {
				results <- ScanResult{Error: relErr}
				return nil
			}
			results <- ScanResult{File: &FileInfo{
				AbsPath:      p,
				RelativePath: filepath.ToSlash(rel),
				ModTime:      fi.ModTime(),
				Size:         fi.Size(),
			}}
			return nil
		})
		if walkErr != nil && walkErr != ctx.Err() {
			results <- ScanResult{Error: walkErr}
		}
	}()

	return results, nil
}

// ModTime is a helper for reading a single file's modification time without
// a full scan, used by reconciliation to detect changed-on-disk files.
func ModTime(absPath string) (time.Time, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ResolveSafe resolves rel against root and rejects it unless the resolved
// absolute path is strictly below the resolved root, per the scanner's
// path-safety contract (§4.6). Returns the absolute path on success.
func ResolveSafe(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("scanner: resolve root: %w", err)
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("scanner: resolve root: %w", err)
	}

	candidate := filepath.Join(absRoot, rel)
	resolved, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("scanner: resolve path: %w", err)
	}

	withSep := absRoot + string(filepath.Separator)
	if !strings.HasPrefix(resolved, withSep) {
		return "", fmt.Errorf("scanner: path %q escapes source root", rel)
	}
	return resolved, nil
}

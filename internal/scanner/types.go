// Package scanner enumerates the files in a vault's source root that the
// Format Reader Registry knows how to parse.
package scanner

import "time"

// FileInfo is one discovered file.
type FileInfo struct {
	AbsPath      string    // absolute path on disk
	RelativePath string    // relative to the source root, forward-slashed
	ModTime      time.Time
	Size         int64
}

// ScanResult is streamed from the scanner's channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// Options configures a scan.
type Options struct {
	// RootDir is the vault's source root.
	RootDir string
	// Extensions is the registered, case-insensitive extension set a file
	// must match (including the leading dot) to be yielded.
	Extensions []string
	// Workers is not read by Scan, which walks the tree in a single
	// goroutine.
	Workers int
}

// excludedDirs is the fixed set of directory names skipped at any depth.
var excludedDirs = map[string]bool{
	".roux":      true,
	"node_modules": true,
	".git":       true,
	".obsidian":  true,
}

package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	rouxerrors "github.com/rouxgraph/roux/internal/errors"
	"github.com/rouxgraph/roux/internal/ids"
	"github.com/rouxgraph/roux/internal/reader"
	"github.com/rouxgraph/roux/internal/scanner"
	"github.com/rouxgraph/roux/internal/store"
)

// parsedFile is one file's worth of parse output plus enough bookkeeping to
// upsert it and feed the resolver.
type parsedFile struct {
	node     store.Node
	rawLinks []string
}

// parseFile reads absPath, parses it via the reader registry, and resolves
// its identifier per §6.3/§4.8.1 step 3: an existing valid id is kept as-is;
// otherwise one is generated and written back to the file's frontmatter,
// guarded against a concurrent modification (TOCTOU) between the read and
// the write-back.
func (c *Coordinator) parseFile(absPath, rel string, modTime time.Time) (parsedFile, error) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return parsedFile{}, rouxerrors.Wrap(rouxerrors.ErrCodeIOMissing, err)
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	parsed, err := c.readers.Parse(reader.RawFile{
		AbsolutePath: absPath,
		RelativePath: rel,
		Extension:    ext,
		ModTime:      modTime,
		Bytes:        raw,
	})
	if err != nil {
		return parsedFile{}, rouxerrors.Wrap(rouxerrors.ErrCodeParseMalformed, err)
	}

	title := parsed.Title
	if title == "" {
		title = reader.DeriveTitle(rel)
	}

	id := parsed.ID
	finalModTime := modTime
	if !ids.Valid(id) {
		id, finalModTime, err = c.writeBackID(absPath, rel, modTime, parsed, title)
		if err != nil {
			return parsedFile{}, err
		}
	}

	node := store.Node{
		ID:            id,
		Title:         title,
		Content:       parsed.Content,
		Tags:          parsed.Tags,
		Properties:    parsed.Properties,
		OutgoingLinks: nil, // filled in by the resolver pass, not here
		Source: store.SourceRef{
			Kind:         "file",
			AbsolutePath: absPath,
			ModTime:      finalModTime,
		},
	}
	return parsedFile{node: node, rawLinks: parsed.RawLinkTargets}, nil
}

// writeBackID generates a fresh id and writes it to the file's frontmatter,
// unless the file changed on disk between the original read and now (§4.8.1
// step 3's TOCTOU guard), in which case the generated id is still used for
// this pass but never persisted — the file still lacks an id, so the next
// sync will detect that and retry.
func (c *Coordinator) writeBackID(absPath, rel string, observedModTime time.Time, parsed reader.ParsedFile, title string) (string, time.Time, error) {
	newID, err := ids.New()
	if err != nil {
		return "", time.Time{}, rouxerrors.InternalError("generate node id", err)
	}

	current, err := scanner.ModTime(absPath)
	if err != nil {
		return "", time.Time{}, rouxerrors.Wrap(rouxerrors.ErrCodeIOMissing, err)
	}
	if !current.Equal(observedModTime) {
		c.logger.Warn("coordinator: skipping id writeback, file changed since read", "path", rel)
		return newID, observedModTime, nil
	}

	rendered := reader.RenderFrontmatter(newID, title, parsed.Tags, parsed.Properties, parsed.Content)
	if err := os.WriteFile(absPath, rendered, 0o644); err != nil {
		return "", time.Time{}, rouxerrors.New(rouxerrors.ErrCodeTOCTOU, fmt.Sprintf("write id back to %s: %v", rel, err), err)
	}

	written, err := scanner.ModTime(absPath)
	if err != nil {
		return "", time.Time{}, rouxerrors.Wrap(rouxerrors.ErrCodeIOMissing, err)
	}
	return newID, written, nil
}

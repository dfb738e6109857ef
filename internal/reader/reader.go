// Package reader maps file extensions to parsers that turn raw file bytes
// into the fields the rest of the graph needs: identifier, title, tags,
// frontmatter properties, rendered content, and raw wiki-link targets.
package reader

import (
	"fmt"
	"strings"
	"time"
)

// RawFile is everything a parser needs to read from a single source file.
type RawFile struct {
	AbsolutePath string
	RelativePath string
	Extension    string // lowercase, including the leading dot
	ModTime      time.Time
	Bytes        []byte
}

// ParsedFile is what a parser extracts from a RawFile.
type ParsedFile struct {
	// ID is the node identifier found in frontmatter, empty if absent.
	ID string
	// Title is the node's display name, empty if absent.
	Title string
	Tags  []string
	// Properties holds arbitrary frontmatter fields, excluding the
	// reserved id/title/tags keys.
	Properties map[string]any
	// Content is the body with frontmatter stripped.
	Content string
	// RawLinkTargets are wiki-link targets found in the body, in
	// first-occurrence order with duplicates removed.
	RawLinkTargets []string
}

// Parser turns a RawFile into a ParsedFile. Malformed input should degrade
// gracefully (empty frontmatter fields, body preserved verbatim) rather than
// returning an error; Parse returns an error only for conditions a caller
// must react to, such as an unreadable encoding.
type Parser interface {
	Parse(file RawFile) (ParsedFile, error)
}

// Registry maps lowercase file extensions to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// NewDefaultRegistry returns a registry with the markdown parser registered
// for .md, .markdown, and .mdx.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	md := NewMarkdownParser()
	for _, ext := range []string{".md", ".markdown", ".mdx"} {
		if err := r.Register(ext, md); err != nil {
			panic(err) // unreachable: default registry never double-registers
		}
	}
	return r
}

// Register binds a parser to a lowercase extension. Registration is
// exclusive: registering an extension that is already claimed fails and
// leaves the registry unchanged.
func (r *Registry) Register(ext string, p Parser) error {
	norm := strings.ToLower(ext)
	if _, exists := r.parsers[norm]; exists {
		return fmt.Errorf("reader: extension %q is already registered", norm)
	}
	r.parsers[norm] = p
	return nil
}

// Lookup returns the parser registered for ext (case-insensitive) and
// whether one was found.
func (r *Registry) Lookup(ext string) (Parser, bool) {
	p, ok := r.parsers[strings.ToLower(ext)]
	return p, ok
}

// Extensions returns every extension currently registered, unordered.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	return exts
}

// Parse looks up a parser for file.Extension and invokes it. Returns an
// error if no parser is registered for the extension.
func (r *Registry) Parse(file RawFile) (ParsedFile, error) {
	p, ok := r.Lookup(file.Extension)
	if !ok {
		return ParsedFile{}, fmt.Errorf("reader: no parser registered for extension %q", file.Extension)
	}
	return p.Parse(file)
}

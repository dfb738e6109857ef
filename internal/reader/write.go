package reader

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// RenderFrontmatter serializes id/title/tags/properties back into a leading
// YAML frontmatter block followed by body, the inverse of MarkdownParser.Parse.
// Property key order is not preserved across a parse/render round trip;
// yaml.Marshal sorts map keys.
func RenderFrontmatter(id, title string, tags []string, properties map[string]any, body string) []byte {
	fm := make(map[string]any, len(properties)+3)
	for k, v := range properties {
		fm[k] = v
	}
	fm["id"] = id
	if title != "" {
		fm["title"] = title
	}
	if len(tags) > 0 {
		fm["tags"] = tags
	}

	encoded, err := yaml.Marshal(fm)
	if err != nil {
		// fm is built entirely from already-decoded YAML-compatible values,
		// so this is unreachable in practice; fall back to an id-only block
		// rather than losing the write.
		encoded = []byte("id: " + id + "\n")
	}

	var out bytes.Buffer
	out.WriteString("---\n")
	out.Write(encoded)
	out.WriteString("---\n")
	out.WriteString(body)
	return out.Bytes()
}

// DeriveTitle produces the fallback title spec.md §6.3 requires when a file
// lacks a frontmatter title: strip the extension, split on "-"/"_", title-case
// each word.
func DeriveTitle(relativePath string) string {
	base := filepath.Base(relativePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, p := range parts {
		parts[i] = titleCaseWord(p)
	}
	return strings.Join(parts, " ")
}

func titleCaseWord(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	for i := 1; i < len(r); i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

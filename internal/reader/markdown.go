package reader

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	frontmatterPattern = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n?`)
	wikiLinkPattern     = regexp.MustCompile(`\[\[([^\]|\n]+)(?:\|[^\]\n]*)?\]\]`)
	fencedCodePattern   = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern   = regexp.MustCompile("`[^`\n]*`")
)

// reservedFrontmatterKeys are lifted out of Properties into their own
// ParsedFile fields.
var reservedFrontmatterKeys = map[string]bool{"id": true, "title": true, "tags": true}

// MarkdownParser implements Parser for Markdown (and MDX) source files.
type MarkdownParser struct{}

// NewMarkdownParser returns a stateless Markdown parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse strips frontmatter, lifts the id/title/tags reserved keys, and scans
// the remaining body for wiki-link targets. Malformed frontmatter never
// fails the parse: it is treated as absent and the raw body is preserved.
func (p *MarkdownParser) Parse(file RawFile) (ParsedFile, error) {
	text := string(file.Bytes)

	body := text
	properties := map[string]any{}
	var id, title string
	var tags []string

	if m := frontmatterPattern.FindStringSubmatchIndex(text); m != nil {
		raw := text[m[2]:m[3]]

		var fm map[string]any
		if err := yaml.Unmarshal([]byte(raw), &fm); err == nil {
			body = text[m[1]:]
			for k, v := range fm {
				lk := strings.ToLower(k)
				switch lk {
				case "id":
					id, _ = v.(string)
				case "title":
					title, _ = v.(string)
				case "tags":
					tags = coerceTags(v)
				default:
					properties[k] = v
				}
			}
		}
		// A yaml.Unmarshal error leaves properties/id/title/tags at their
		// zero values and body as the full, unmodified file text.
	}

	return ParsedFile{
		ID:             id,
		Title:          title,
		Tags:           tags,
		Properties:     properties,
		Content:        body,
		RawLinkTargets: extractWikiLinks(body),
	}, nil
}

// coerceTags normalizes a frontmatter "tags" value, which may be a YAML
// sequence or a single comma-separated string, into an ordered string slice.
func coerceTags(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			} else if item != nil {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return nil
	}
}

// extractWikiLinks scans body for [[target]] / [[target|alias]] references,
// ignoring matches inside fenced code blocks or inline backtick spans, and
// returns targets deduplicated in first-occurrence order.
func extractWikiLinks(body string) []string {
	masked := fencedCodePattern.ReplaceAllStringFunc(body, blankOut)
	masked = inlineCodePattern.ReplaceAllStringFunc(masked, blankOut)

	matches := wikiLinkPattern.FindAllStringSubmatch(masked, -1)
	if matches == nil {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var targets []string
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		targets = append(targets, target)
	}
	return targets
}

// blankOut replaces a matched region with spaces (preserving newlines so
// later line-based reasoning stays valid), removing it from link-extraction
// consideration without shifting any byte offsets.
func blankOut(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' {
			b.WriteRune('\n')
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

//go:build ignore

// Package main generates a synthetic vault of frontmatter-and-wikilink
// Markdown notes for benchmarking sync/resolve/graph/vector performance
// against vaults much larger than the fixtures under testdata/.
// Usage: go run scripts/generate-test-corpus.go -notes 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numNotes  = flag.Int("notes", 1000, "Number of notes to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	ghostPct  = flag.Float64("ghost-pct", 0.05, "Fraction of wiki-links that target a note not in the corpus")
	linksMax  = flag.Int("links-max", 4, "Max outgoing wiki-links per note")
)

var noteTemplate = `---
title: %s
tags: [%s]
---

# %s

%s is part of the %s domain. It connects to the following notes:

%s

## Notes

Generated for benchmarking; body content is filler text repeated to reach
a realistic note size for embedding and indexing.
`

var nouns = []string{
	"Handler", "Manager", "Service", "Controller", "Processor",
	"Engine", "Client", "Server", "Worker", "Factory",
	"Builder", "Parser", "Validator", "Formatter", "Converter",
	"Cache", "Store", "Queue", "Pool", "Buffer",
	"Router", "Dispatcher", "Scheduler", "Monitor", "Logger",
	"Gateway", "Session", "Token", "Config", "Pipeline",
}

var domains = []string{
	"authentication", "authorization", "caching", "logging", "monitoring",
	"messaging", "scheduling", "routing", "parsing", "validation",
	"serialization", "compression", "encryption", "hashing", "indexing",
	"searching", "filtering", "sorting", "pagination", "batching",
}

var tagPool = []string{
	"reference", "draft", "architecture", "runbook", "meeting",
	"project", "idea", "archive",
}

func main() {
	flag.Parse()
	rand.Seed(*seed)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	titles := make([]string, *numNotes)
	for i := range titles {
		titles[i] = fmt.Sprintf("%s %s %d", randomWord(nouns), randomWord(domains), i)
	}

	for i, title := range titles {
		if err := writeNote(i, title, titles); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating note %d: %v\n", i, err)
		}
	}

	fmt.Printf("Generated %d notes in %s\n", *numNotes, *outputDir)
}

func randomWord(pool []string) string {
	return pool[rand.Intn(len(pool))]
}

func slugify(title string) string {
	return strings.ToLower(strings.ReplaceAll(title, " ", "-"))
}

func writeNote(index int, title string, allTitles []string) error {
	domain := randomWord(domains)

	numTags := 1 + rand.Intn(3)
	tags := make([]string, 0, numTags)
	for i := 0; i < numTags; i++ {
		tags = append(tags, randomWord(tagPool))
	}

	numLinks := rand.Intn(*linksMax + 1)
	links := make([]string, 0, numLinks)
	for i := 0; i < numLinks; i++ {
		if rand.Float64() < *ghostPct {
			// Link to a title outside the corpus: the link resolver will
			// materialize this as a ghost node with no source file.
			links = append(links, fmt.Sprintf("- [[Unindexed %s %d]]", randomWord(nouns), rand.Intn(100000)))
			continue
		}
		target := allTitles[rand.Intn(len(allTitles))]
		if target == title {
			continue
		}
		links = append(links, fmt.Sprintf("- [[%s]]", target))
	}
	if len(links) == 0 {
		links = append(links, "- (no outgoing links)")
	}

	content := fmt.Sprintf(noteTemplate,
		title,
		strings.Join(tags, ", "),
		title,
		title, domain,
		strings.Join(links, "\n"),
	)

	filename := filepath.Join(*outputDir, fmt.Sprintf("%s-%d.md", slugify(title), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

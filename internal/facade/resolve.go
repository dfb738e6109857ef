package facade

import (
	"context"
	"math"
	"strings"

	rouxerrors "github.com/rouxgraph/roux/internal/errors"
	"github.com/rouxgraph/roux/internal/embed"
	"github.com/rouxgraph/roux/internal/store"
)

// ResolveStrategy selects how ResolveNodes matches a name to a node.
type ResolveStrategy string

const (
	ResolveExact    ResolveStrategy = "exact"
	ResolveFuzzy    ResolveStrategy = "fuzzy"
	ResolveSemantic ResolveStrategy = "semantic"

	defaultFuzzyThreshold = 0.7
)

// ResolveMatch is one entry of ResolveNodes' per-name result list.
type ResolveMatch struct {
	Query string
	Match *NodeSummary
	Score float64
}

// ResolveNodes matches each of names against the known node titles using
// strategy. Semantic resolution requires an active embedder and fails
// outright if none is registered.
func (f *Facade) ResolveNodes(ctx context.Context, names []string, strategy ResolveStrategy, threshold float64) ([]ResolveMatch, error) {
	if threshold <= 0 {
		threshold = defaultFuzzyThreshold
	}

	nodes, err := f.cache.ListAll()
	if err != nil {
		return nil, rouxerrors.InternalError("resolve_nodes: list nodes", err)
	}

	var embedder embed.Embedder
	var titleVecs [][]float32
	if strategy == ResolveSemantic {
		embedder = f.coordinator.Embeds().Active()
		if embedder == nil {
			return nil, rouxerrors.ProviderError("resolve_nodes: semantic strategy requires an embedder", nil)
		}
		titles := make([]string, len(nodes))
		for i, n := range nodes {
			titles[i] = n.Title
		}
		vecs, err := embedder.EmbedBatch(ctx, titles)
		if err != nil {
			return nil, rouxerrors.ProviderError("resolve_nodes: embed candidate titles", err)
		}
		titleVecs = vecs
	}

	out := make([]ResolveMatch, 0, len(names))
	for _, name := range names {
		var match ResolveMatch
		switch strategy {
		case ResolveFuzzy:
			match = resolveFuzzy(name, nodes, threshold)
		case ResolveSemantic:
			m, err := resolveSemantic(ctx, embedder, name, nodes, titleVecs, threshold)
			if err != nil {
				return nil, err
			}
			match = m
		default:
			match = resolveExact(name, nodes)
		}
		match.Query = name
		out = append(out, match)
	}
	return out, nil
}

func resolveExact(name string, nodes []store.Node) ResolveMatch {
	target := strings.ToLower(name)
	for _, n := range nodes {
		if strings.ToLower(n.Title) == target {
			s := toSummary(n)
			return ResolveMatch{Match: &s, Score: 1}
		}
	}
	return ResolveMatch{}
}

// resolveFuzzy picks the node whose title has the highest bigram Dice
// coefficient with name, provided it clears threshold.
func resolveFuzzy(name string, nodes []store.Node, threshold float64) ResolveMatch {
	needle := normalizeForDice(name)
	best := -1.0
	var bestNode store.Node
	found := false
	for _, n := range nodes {
		score := diceCoefficient(needle, normalizeForDice(n.Title))
		if score > best {
			best = score
			bestNode = n
			found = true
		}
	}
	if !found || best < threshold {
		return ResolveMatch{Score: clampScore(best)}
	}
	s := toSummary(bestNode)
	return ResolveMatch{Match: &s, Score: best}
}

// resolveSemantic embeds name and finds the argmax cosine similarity over
// the precomputed title embeddings, per §4.9's semantic strategy: "embed
// each query and each candidate title with the embedder; for each query,
// find the argmax cosine similarity over candidates."
func resolveSemantic(ctx context.Context, embedder embed.Embedder, name string, nodes []store.Node, titleVecs [][]float32, threshold float64) (ResolveMatch, error) {
	queryVec, err := embedder.Embed(ctx, name)
	if err != nil {
		return ResolveMatch{}, rouxerrors.ProviderError("resolve_nodes: embed query", err)
	}

	best := -1.0
	bestIdx := -1
	for i, v := range titleVecs {
		score := cosineSimilarity(queryVec, v)
		if score > best {
			best = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || best < threshold {
		return ResolveMatch{Score: clampScore(best)}, nil
	}
	s := toSummary(nodes[bestIdx])
	return ResolveMatch{Match: &s, Score: best}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	return s
}

// normalizeForDice lowercases and strips whitespace so surface differences
// in spacing don't affect bigram overlap.
func normalizeForDice(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// diceCoefficient computes the Sørensen–Dice coefficient over character
// bigrams: 2 * |bigrams(a) ∩ bigrams(b)| / (|bigrams(a)| + |bigrams(b)|).
// No library in the dependency set covers string similarity, so this is a
// small standalone implementation rather than a borrowed one.
func diceCoefficient(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	bigramsA := bigramCounts(ra)
	bigramsB := bigramCounts(rb)

	intersection := 0
	for bg, count := range bigramsA {
		if other, ok := bigramsB[bg]; ok {
			intersection += min(count, other)
		}
	}

	total := (len(ra) - 1) + (len(rb) - 1)
	if total == 0 {
		return 0
	}
	return 2 * float64(intersection) / float64(total)
}

func bigramCounts(r []rune) map[string]int {
	counts := make(map[string]int, len(r))
	for i := 0; i < len(r)-1; i++ {
		counts[string(r[i:i+2])]++
	}
	return counts
}

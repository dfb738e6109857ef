package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// StaticDimensions is the vector length StaticEmbedder produces.
const StaticDimensions = 384

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "is": true, "it": true, "for": true, "on": true,
	"with": true, "as": true, "at": true, "by": true, "this": true, "that": true,
}

// StaticEmbedder is a deterministic, dependency-free embedder: a weighted
// mix of lowercased-token and character-trigram hash buckets, unit-normalized.
// It has no semantic quality beyond lexical overlap, but lets the rest of
// the system (vector search, resolver's semantic strategy) run without a
// network dependency.
type StaticEmbedder struct{}

// NewStaticEmbedder creates a StaticEmbedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}
	return normalize(vectorize(trimmed)), nil
}

func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }
func (e *StaticEmbedder) ModelID() string { return "static-384" }

func vectorize(text string) []float32 {
	vec := make([]float32, StaticDimensions)
	for _, tok := range tokenize(text) {
		vec[hashToIndex(tok, StaticDimensions)] += tokenWeight
	}
	for _, tri := range trigrams(normalizeForTrigrams(text)) {
		vec[hashToIndex(tri, StaticDimensions)] += ngramWeight
	}
	return vec
}

func tokenize(text string) []string {
	var out []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		lower := strings.ToLower(word)
		if lower != "" && !stopWords[lower] {
			out = append(out, lower)
		}
	}
	return out
}

func normalizeForTrigrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func trigrams(s string) []string {
	if len(s) < ngramSize {
		return nil
	}
	out := make([]string, 0, len(s)-ngramSize+1)
	for i := 0; i <= len(s)-ngramSize; i++ {
		out = append(out, s[i:i+ngramSize])
	}
	return out
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	if sumSq == 0 {
		return v
	}
	mag := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / mag)
	}
	return v
}

package index

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into vectors. All vectors from one Embedder share a
// dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashEmbedder is a dependency-free lexical embedder: lower-cased word
// tokens and word bigrams are hashed into Dim buckets with sublinear term
// frequency, then L2-normalized. Cosine similarity over these vectors
// approximates keyword overlap.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder creates a hash embedder with 512 dimensions.
func NewHashEmbedder() HashEmbedder { return HashEmbedder{Dim: 512} }

func (h HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := h.Dim
	if dim <= 0 {
		dim = 512
	}
	vec := make([]float64, dim)

	tokens := tokenize(text)
	add := func(term string, weight float64) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(term))
		sum := hasher.Sum32()
		bucket := int(sum % uint32(dim))
		// The top bit picks a sign so collisions cancel instead of pile up.
		if sum&0x80000000 != 0 {
			weight = -weight
		}
		vec[bucket] += weight
	}
	for i, tok := range tokens {
		add(tok, 1)
		if i > 0 {
			add(tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for i, v := range vec {
		if a := math.Abs(v); a > 1 {
			vec[i] = math.Copysign(1+math.Log(a), v)
		}
		norm += vec[i] * vec[i]
	}
	out := make([]float32, dim)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "it": {}, "do": {}, "does": {}, "you": {},
	"your": {}, "we": {}, "our": {}, "i": {}, "my": {}, "with": {}, "can": {}, "what": {},
	"how": {}, "be": {}, "this": {}, "that": {},
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

package memory

import (
	"hash/fnv"
	"math"
	"strings"
)

// embeddingDim is the dimensionality of the hashed bag-of-words vectors.
const embeddingDim = 64

// Embedder derives a fixed-size vector from text. Embed must be deterministic:
// equal content yields equal vectors so cosine ranking stays comparable across
// store and query time. The ranking and compaction logic is independent of the
// embedder, so a learned model can be plugged in without further changes.
type Embedder interface {
	Embed(text string) []float64
}

// HashedEmbedder is the default Embedder: tokens are lowercased, hashed with
// FNV-1a into a fixed number of buckets and the resulting count vector is
// L2-normalized. Overlapping vocabulary produces overlapping buckets, which is
// enough signal for relevance ranking without any external model.
type HashedEmbedder struct{}

// Embed derives the hashed bag-of-words vector for text.
func (HashedEmbedder) Embed(text string) []float64 {
	vec := make([]float64, embeddingDim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%embeddingDim]++
	}
	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// cosine returns the cosine similarity of two equal-length vectors. Inputs
// are already normalized, so this is a plain dot product.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

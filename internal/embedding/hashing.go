// Package embedding provides embedding providers that need no network
// access, plus a caching decorator for any provider.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimensions is the vector length used by NewHashing when dims <= 0.
const DefaultDimensions = 512

// Hashing is a deterministic bag-of-words embedder. Word unigrams and
// bigrams are hashed into a fixed number of signed buckets and the result is
// L2-normalized. Identical texts always map to identical vectors and texts
// sharing vocabulary score a positive cosine similarity.
type Hashing struct {
	dims int
}

// NewHashing creates a Hashing embedder producing vectors of length dims.
func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Hashing{dims: dims}
}

// Dimensions returns the vector length.
func (h *Hashing) Dimensions() int {
	return h.dims
}

// Embed implements scorer.Embedder.
func (h *Hashing) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, h.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (h *Hashing) add(vec []float64, feature string, weight float64) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dims))
	// The top bit picks the sign so that collisions tend to cancel out.
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

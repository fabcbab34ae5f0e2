package embedding

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/giantswarm/prompt-trainer/internal/scorer"
)

const defaultCacheSize = 1024

// Cache memoizes the vectors returned by another embedder. Target responses
// are embedded on every attempt at a challenge, so caching them avoids
// repeated provider calls. Errors are not cached.
type Cache struct {
	next    scorer.Embedder
	entries *lru.Cache[string, []float64]
}

// NewCache wraps next with an LRU cache holding at most maxSize vectors.
func NewCache(next scorer.Embedder, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, []float64](maxSize)
	return &Cache{next: next, entries: entries}
}

// Embed implements scorer.Embedder.
func (c *Cache) Embed(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := c.entries.Get(text); ok {
		return slices.Clone(vec), nil
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.entries.Add(text, slices.Clone(vec))
	return vec, nil
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	return c.entries.Len()
}

package testutil

import (
	"context"
	"sync"
)

// StubEmbedder is a deterministic scorer.Embedder for tests.
type StubEmbedder struct {
	mu sync.Mutex

	// Vectors maps texts to fixed vectors.
	Vectors map[string][]float64

	// Err, if set, is returned from every Embed call.
	Err error

	// Calls tracks the number of Embed invocations.
	Calls int
}

// Embed returns the configured vector for text. Unknown texts map to a
// vector derived from their length so that identical texts always match.
func (s *StubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++

	if s.Err != nil {
		return nil, s.Err
	}
	if v, ok := s.Vectors[text]; ok {
		return v, nil
	}
	return []float64{1, float64(len(text))}, nil
}

// StubReadability is a scorer.ReadabilityScorer returning a fixed grade.
type StubReadability struct {
	GradeValue float64
	Err        error
}

func (s StubReadability) Grade(string) (float64, error) {
	return s.GradeValue, s.Err
}

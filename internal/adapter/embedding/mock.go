package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"docqa/internal/domain"
)

// MockEmbedder produces deterministic bag-of-words vectors by hashing each
// token into a dimension bucket. Texts sharing words get high cosine
// similarity and a text is always its own nearest neighbor, which is enough
// for tests and offline runs without an embedding service.
type MockEmbedder struct {
	dimension int
}

// NewMockEmbedder creates a mock embedder with the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("embedding: text %d is empty: %w", i, domain.ErrInvalidInput)
		}
		vec := make([]float32, e.dimension)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			tok = strings.Trim(tok, ".,;:!?\"'()[]")
			if tok == "" {
				continue
			}
			h := fnv.New32a()
			h.Write([]byte(tok))
			vec[int(h.Sum32())%e.dimension]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

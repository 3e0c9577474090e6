// Package index implements the per-document vector index: a one-shot build
// over (chunk, vector) pairs and exact brute-force cosine search. An index
// is immutable after Build, so concurrent searches need no locking; rebuild
// and swap is the only mutation path.
package index

import (
	"fmt"
	"math"
	"sort"

	"docqa/internal/domain"
)

type entry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

// Index holds one document's chunks and their embeddings.
type Index struct {
	dimension int
	entries   []entry
}

// Build constructs an index from parallel chunk and vector slices. It fails
// with ErrDimensionMismatch when the slices differ in length or the vectors
// differ in dimension, and with ErrEmptyIndex when there is nothing to
// index.
func Build(chunks []domain.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("index: %d chunks but %d vectors: %w", len(chunks), len(vectors), domain.ErrDimensionMismatch)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("index: no chunks to index: %w", domain.ErrEmptyIndex)
	}

	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, fmt.Errorf("index: zero-dimension vector: %w", domain.ErrDimensionMismatch)
	}

	entries := make([]entry, len(chunks))
	for i, vec := range vectors {
		if len(vec) != dimension {
			return nil, fmt.Errorf("index: vector %d has dimension %d, expected %d: %w", i, len(vec), dimension, domain.ErrDimensionMismatch)
		}
		entries[i] = entry{chunk: chunks[i], vector: vec, norm: norm(vec)}
	}

	return &Index{dimension: dimension, entries: entries}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Dimension returns the index's vector dimension.
func (ix *Index) Dimension() int {
	return ix.dimension
}

// Search returns up to k chunks ranked by descending cosine similarity to
// the query vector. Ties are broken by ascending chunk sequence so ranking
// is reproducible. When k exceeds the stored chunk count, all chunks are
// returned ranked.
func (ix *Index) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	if len(ix.entries) == 0 {
		return nil, fmt.Errorf("index: %w", domain.ErrEmptyIndex)
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("index: query has dimension %d, expected %d: %w", len(query), ix.dimension, domain.ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, fmt.Errorf("index: k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}

	queryNorm := norm(query)

	scored := make([]domain.ScoredChunk, len(ix.entries))
	for i, e := range ix.entries {
		scored[i] = domain.ScoredChunk{
			Chunk: e.chunk,
			Score: cosine(query, queryNorm, e.vector, e.norm),
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Seq < scored[j].Chunk.Seq
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, normA float64, b []float32, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

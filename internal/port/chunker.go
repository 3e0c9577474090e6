package port

import "docqa/internal/domain"

// Chunker splits extracted document text into overlapping passages.
type Chunker interface {
	Chunk(docID, text string) ([]domain.Chunk, error)
}

package port

import "docqa/internal/domain"

// StoredVector is a persisted chunk embedding.
type StoredVector struct {
	ChunkID string
	Vector  []float32
}

// DocumentStore persists the artifacts the core emits: documents, chunks,
// chunk vectors, summaries and answers. Durability is the store's contract,
// not the core's.
type DocumentStore interface {
	PutDocument(doc domain.Document) error

	GetDocument(id string) (domain.Document, error)

	// FindByHash returns the owner's document with the given content hash,
	// or domain.ErrNotFound.
	FindByHash(ownerID, hash string) (domain.Document, error)

	ListDocuments(ownerID string) ([]domain.Document, error)

	DeleteDocument(id string) error

	PutChunks(docID string, chunks []domain.Chunk) error

	GetChunks(docID string) ([]domain.Chunk, error)

	// PutVectors stores chunk embeddings along with their dimension.
	PutVectors(docID string, dimension int, vectors []StoredVector) error

	// GetVectors returns the stored embeddings and their dimension.
	GetVectors(docID string) (int, []StoredVector, error)

	PutSummary(summary domain.Summary) error

	GetSummary(docID string) (domain.Summary, error)

	AppendAnswer(answer domain.Answer) error

	GetAnswers(docID string) ([]domain.Answer, error)

	Close() error
}

// Package memstore is an in-memory DocumentStore for tests and ephemeral
// sessions. Nothing survives the process.
package memstore

import (
	"fmt"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/port"
)

var _ port.DocumentStore = (*MemoryStore)(nil)

type MemoryStore struct {
	mu        sync.RWMutex
	docs      map[string]domain.Document
	chunks    map[string][]domain.Chunk
	vectors   map[string]storedVectors
	summaries map[string]domain.Summary
	answers   map[string][]domain.Answer
	hashes    map[string]string
}

type storedVectors struct {
	dimension int
	vectors   []port.StoredVector
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		vectors:   make(map[string]storedVectors),
		summaries: make(map[string]domain.Summary),
		answers:   make(map[string][]domain.Answer),
		hashes:    make(map[string]string),
	}
}

func (s *MemoryStore) PutDocument(doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.hashes[hashKey(doc.OwnerID, doc.ContentHash)] = doc.ID
	return nil
}

func (s *MemoryStore) GetDocument(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

func (s *MemoryStore) FindByHash(ownerID, hash string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.hashes[hashKey(ownerID, hash)]
	if !ok {
		return domain.Document{}, fmt.Errorf("content hash: %w", domain.ErrNotFound)
	}
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

func (s *MemoryStore) ListDocuments(ownerID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *MemoryStore) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		delete(s.hashes, hashKey(doc.OwnerID, doc.ContentHash))
	}
	delete(s.docs, id)
	delete(s.chunks, id)
	delete(s.vectors, id)
	delete(s.summaries, id)
	delete(s.answers, id)
	return nil
}

func (s *MemoryStore) PutChunks(docID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[docID] = append([]domain.Chunk(nil), chunks...)
	return nil
}

func (s *MemoryStore) GetChunks(docID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.chunks[docID]
	if !ok {
		return nil, fmt.Errorf("chunks for %s: %w", docID, domain.ErrNotFound)
	}
	return append([]domain.Chunk(nil), chunks...), nil
}

func (s *MemoryStore) PutVectors(docID string, dimension int, vectors []port.StoredVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v.Vector) != dimension {
			return fmt.Errorf("vector for %s has %d dims, want %d: %w", v.ChunkID, len(v.Vector), dimension, domain.ErrDimensionMismatch)
		}
	}
	s.vectors[docID] = storedVectors{dimension: dimension, vectors: append([]port.StoredVector(nil), vectors...)}
	return nil
}

func (s *MemoryStore) GetVectors(docID string) (int, []port.StoredVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.vectors[docID]
	if !ok {
		return 0, nil, fmt.Errorf("vectors for %s: %w", docID, domain.ErrNotFound)
	}
	return stored.dimension, append([]port.StoredVector(nil), stored.vectors...), nil
}

func (s *MemoryStore) PutSummary(summary domain.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.DocID] = summary
	return nil
}

func (s *MemoryStore) GetSummary(docID string) (domain.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[docID]
	if !ok {
		return domain.Summary{}, fmt.Errorf("summary for %s: %w", docID, domain.ErrNotFound)
	}
	return summary, nil
}

func (s *MemoryStore) AppendAnswer(answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[answer.DocID] = append(s.answers[answer.DocID], answer)
	return nil
}

func (s *MemoryStore) GetAnswers(docID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Answer(nil), s.answers[docID]...), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func hashKey(ownerID, hash string) string {
	return ownerID + "|" + hash
}

// Package store persists the artifacts the core emits: documents, chunks,
// chunk vectors, summaries and answer history. Values are JSON blobs in one
// bbolt bucket per entity kind. Chunks and vectors are stored per document
// as a single value because the core rebuilds rather than mutates them.
package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
	"docqa/internal/port"
)

var (
	bucketDocs      = []byte("documents")
	bucketChunks    = []byte("chunks")
	bucketVectors   = []byte("vectors")
	bucketSummaries = []byte("summaries")
	bucketAnswers   = []byte("answers")
	bucketHashes    = []byte("content_hashes")
)

// Bolt is a bbolt-backed DocumentStore.
type Bolt struct {
	db *bbolt.DB
}

var _ port.DocumentStore = (*Bolt)(nil)

// Open opens (creating if needed) the store at path.
func Open(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketChunks, bucketVectors, bucketSummaries, bucketAnswers, bucketHashes} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

func (s *Bolt) PutDocument(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocs).Put([]byte(doc.ID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketHashes).Put(hashKey(doc.OwnerID, doc.ContentHash), []byte(doc.ID))
	})
}

func (s *Bolt) GetDocument(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &doc)
	})
	return doc, err
}

func (s *Bolt) FindByHash(ownerID, hash string) (domain.Document, error) {
	var docID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketHashes).Get(hashKey(ownerID, hash))
		if id == nil {
			return fmt.Errorf("document with hash %s: %w", hash, domain.ErrNotFound)
		}
		docID = string(id)
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}
	return s.GetDocument(docID)
}

func (s *Bolt) ListDocuments(ownerID string) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var doc domain.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			if ownerID == "" || doc.OwnerID == ownerID {
				docs = append(docs, doc)
			}
			return nil
		})
	})
	return docs, err
}

func (s *Bolt) DeleteDocument(id string) error {
	doc, err := s.GetDocument(id)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(id)
		if err := tx.Bucket(bucketDocs).Delete(key); err != nil {
			return err
		}
		if err := tx.Bucket(bucketChunks).Delete(key); err != nil {
			return err
		}
		if err := tx.Bucket(bucketVectors).Delete(key); err != nil {
			return err
		}
		if err := tx.Bucket(bucketSummaries).Delete(key); err != nil {
			return err
		}
		if err := tx.Bucket(bucketAnswers).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketHashes).Delete(hashKey(doc.OwnerID, doc.ContentHash))
	})
}

func (s *Bolt) PutChunks(docID string, chunks []domain.Chunk) error {
	return s.putJSON(bucketChunks, docID, chunks)
}

func (s *Bolt) GetChunks(docID string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	if err := s.getJSON(bucketChunks, docID, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

type storedVectors struct {
	Dimension int                 `json:"dimension"`
	Vectors   []port.StoredVector `json:"vectors"`
}

func (s *Bolt) PutVectors(docID string, dimension int, vectors []port.StoredVector) error {
	for _, v := range vectors {
		if len(v.Vector) != dimension {
			return fmt.Errorf("store: vector for chunk %s has dimension %d, expected %d: %w", v.ChunkID, len(v.Vector), dimension, domain.ErrDimensionMismatch)
		}
	}
	return s.putJSON(bucketVectors, docID, storedVectors{Dimension: dimension, Vectors: vectors})
}

func (s *Bolt) GetVectors(docID string) (int, []port.StoredVector, error) {
	var stored storedVectors
	if err := s.getJSON(bucketVectors, docID, &stored); err != nil {
		return 0, nil, err
	}
	return stored.Dimension, stored.Vectors, nil
}

func (s *Bolt) PutSummary(summary domain.Summary) error {
	return s.putJSON(bucketSummaries, summary.DocID, summary)
}

func (s *Bolt) GetSummary(docID string) (domain.Summary, error) {
	var summary domain.Summary
	err := s.getJSON(bucketSummaries, docID, &summary)
	return summary, err
}

func (s *Bolt) AppendAnswer(answer domain.Answer) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAnswers)
		key := []byte(answer.DocID)

		var answers []domain.Answer
		if data := b.Get(key); data != nil {
			if err := json.Unmarshal(data, &answers); err != nil {
				return err
			}
		}
		answers = append(answers, answer)

		data, err := json.Marshal(answers)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *Bolt) GetAnswers(docID string) ([]domain.Answer, error) {
	var answers []domain.Answer
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAnswers).Get([]byte(docID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &answers)
	})
	return answers, err
}

// Stats summarizes store contents for the status command.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Answers   int `json:"answers"`
}

func (s *Bolt) Stats() (Stats, error) {
	var stats Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.Documents = tx.Bucket(bucketDocs).Stats().KeyN

		if err := tx.Bucket(bucketChunks).ForEach(func(_, v []byte) error {
			var chunks []domain.Chunk
			if err := json.Unmarshal(v, &chunks); err != nil {
				return err
			}
			stats.Chunks += len(chunks)
			return nil
		}); err != nil {
			return err
		}

		return tx.Bucket(bucketAnswers).ForEach(func(_, v []byte) error {
			var answers []domain.Answer
			if err := json.Unmarshal(v, &answers); err != nil {
				return err
			}
			stats.Answers += len(answers)
			return nil
		})
	})
	return stats, err
}

func (s *Bolt) putJSON(bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *Bolt) getJSON(bucket []byte, key string, v any) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("store: %s for document %s: %w", bucket, key, domain.ErrNotFound)
		}
		return json.Unmarshal(data, v)
	})
}

func hashKey(ownerID, hash string) []byte {
	return []byte(ownerID + "|" + hash)
}

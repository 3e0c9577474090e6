package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/adapter/chunker"
	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/internal/retry"
)

// embedStep bounds how many chunks are embedded per request so ingest can
// report progress between requests.
const embedStep = 16

// Ingestor runs the upload pipeline: extract, clean, chunk, embed, persist.
// Duplicate uploads are detected by content hash and returned from the
// store without reprocessing.
type Ingestor struct {
	extractor port.Extractor
	chunker   port.Chunker
	embedder  port.Embedder
	store     port.DocumentStore
	policy    retry.Policy
}

// IngestResult is the outcome of one upload.
type IngestResult struct {
	Document domain.Document
	Chunks   []domain.Chunk
	Vectors  [][]float32
	// Cached is true when the document was already ingested and returned
	// from the store. Chunks and Vectors are loaded, not recomputed.
	Cached bool
}

// ProgressFunc reports embedding progress during ingest.
type ProgressFunc func(done, total int)

func NewIngestor(extractor port.Extractor, chunk port.Chunker, embedder port.Embedder, store port.DocumentStore, policy retry.Policy) *Ingestor {
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}
	return &Ingestor{
		extractor: extractor,
		chunker:   chunk,
		embedder:  embedder,
		store:     store,
		policy:    policy,
	}
}

// IngestFile ingests a document from disk for the given owner.
func (g *Ingestor) IngestFile(ctx context.Context, ownerID, path string, force bool, progress ProgressFunc) (IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	return g.Ingest(ctx, ownerID, filepath.Base(path), data, force, progress)
}

// Ingest runs the full pipeline over raw file bytes.
func (g *Ingestor) Ingest(ctx context.Context, ownerID, filename string, data []byte, force bool, progress ProgressFunc) (IngestResult, error) {
	hash := contentHash(data)

	if !force {
		if cached, err := g.lookupCached(ownerID, hash); err == nil {
			return cached, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return IngestResult{}, err
		}
	}

	format := strings.ToLower(filepath.Ext(filename))
	text, err := g.extractor.Extract(data, format)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: %w", filename, err)
	}

	cleaned := chunker.CleanText(text)
	if cleaned == "" {
		return IngestResult{}, fmt.Errorf("ingest %s: no text after cleanup: %w", filename, domain.ErrExtraction)
	}

	doc := domain.Document{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Filename:    filename,
		Text:        cleaned,
		ContentHash: hash,
		CharCount:   len([]rune(cleaned)),
		CreatedAt:   time.Now().UTC(),
	}

	chunks, err := g.chunker.Chunk(doc.ID, cleaned)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: %w", filename, err)
	}
	doc.ChunkCount = len(chunks)

	vectors, err := g.embedChunks(ctx, chunks, progress)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: %w", filename, err)
	}

	if err := g.persist(doc, chunks, vectors); err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: persist: %w", filename, err)
	}

	return IngestResult{Document: doc, Chunks: chunks, Vectors: vectors}, nil
}

func (g *Ingestor) lookupCached(ownerID, hash string) (IngestResult, error) {
	doc, err := g.store.FindByHash(ownerID, hash)
	if err != nil {
		return IngestResult{}, err
	}
	chunks, err := g.store.GetChunks(doc.ID)
	if err != nil {
		return IngestResult{}, err
	}
	_, stored, err := g.store.GetVectors(doc.ID)
	if err != nil {
		return IngestResult{}, err
	}
	vectors := make([][]float32, len(stored))
	for i, v := range stored {
		vectors[i] = v.Vector
	}
	return IngestResult{Document: doc, Chunks: chunks, Vectors: vectors, Cached: true}, nil
}

func (g *Ingestor) embedChunks(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedStep {
		end := start + embedStep
		if end > len(texts) {
			end = len(texts)
		}

		var batch [][]float32
		err := retry.Do(ctx, g.policy, func(ctx context.Context) error {
			var embedErr error
			batch, embedErr = g.embedder.Embed(ctx, texts[start:end])
			return embedErr
		})
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)

		if progress != nil {
			progress(end, len(texts))
		}
	}
	return vectors, nil
}

func (g *Ingestor) persist(doc domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	if err := g.store.PutDocument(doc); err != nil {
		return err
	}
	if err := g.store.PutChunks(doc.ID, chunks); err != nil {
		return err
	}

	stored := make([]port.StoredVector, len(vectors))
	for i, v := range vectors {
		stored[i] = port.StoredVector{ChunkID: chunks[i].ID, Vector: v}
	}
	return g.store.PutVectors(doc.ID, g.embedder.Dimension(), stored)
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

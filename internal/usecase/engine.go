package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"docqa/internal/adapter/index"
	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/internal/retry"
)

// DefaultTopK is the retrieval width used when the caller passes k <= 0.
// Small on purpose: it bounds prompt size while covering the passages most
// likely to be relevant.
const DefaultTopK = 4

// EngineConfig tunes retrieval and answering.
type EngineConfig struct {
	// TopK is the default retrieval width.
	TopK int
	// MinScore is the relevance floor. When the best retrieved score falls
	// below it, the answer is still produced but flagged low-confidence.
	// Zero disables the floor.
	MinScore float64
	// MaxAnswerTokens is passed to the completion service as a length hint.
	MaxAnswerTokens int
	// Retry is the policy for embedding and completion calls.
	Retry retry.Policy
}

// Engine is the RAG query engine. It owns, per (owner, document), a state
// machine NotIndexed -> Indexing -> Ready (-> Stale on supersession) and the
// built vector index for each Ready pair. Indexes are immutable once built;
// a rebuild installs a fresh index.
type Engine struct {
	chunker   port.Chunker
	embedder  port.Embedder
	completer port.Completer
	cfg       EngineConfig

	mu     sync.Mutex
	states map[stateKey]*docState
}

type stateKey struct {
	ownerID string
	docID   string
}

type docState struct {
	state domain.ReadyState
	// gen increments on every build start and every invalidation, so a
	// build that was superseded mid-flight can detect it and discard its
	// result instead of installing a stale index.
	gen   uint64
	index *index.Index
}

// IndexHandle refers to a Ready (owner, document) pair.
type IndexHandle struct {
	OwnerID    string
	DocID      string
	ChunkCount int

	chunks []domain.Chunk
}

// NewEngine creates a RAG query engine.
func NewEngine(chunker port.Chunker, embedder port.Embedder, completer port.Completer, cfg EngineConfig) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &Engine{
		chunker:   chunker,
		embedder:  embedder,
		completer: completer,
		cfg:       cfg,
		states:    make(map[stateKey]*docState),
	}
}

// State returns the readiness of an (owner, document) pair.
func (e *Engine) State(ownerID, docID string) domain.ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[stateKey{ownerID, docID}]; ok {
		return st.state
	}
	return domain.NotIndexed
}

// Invalidate marks a pair Stale and supersedes any in-flight build for it.
// Called when a new upload replaces the active document.
func (e *Engine) Invalidate(ownerID, docID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[stateKey{ownerID, docID}]; ok {
		st.gen++
		st.state = domain.Stale
		st.index = nil
	}
}

// Initialize builds the full index for a document: chunk, embed, build.
// At most one build may run per (owner, document) pair; a concurrent
// duplicate is rejected with ErrBuildInProgress. On failure the state
// returns to NotIndexed and no partial index is reachable.
func (e *Engine) Initialize(ctx context.Context, doc domain.Document) (*IndexHandle, error) {
	gen, err := e.beginBuild(doc.OwnerID, doc.ID)
	if err != nil {
		return nil, err
	}

	chunks, vectors, err := e.prepare(ctx, doc)
	if err != nil {
		e.abortBuild(doc.OwnerID, doc.ID, gen)
		return nil, fmt.Errorf("document %s: %v: %w", doc.ID, err, domain.ErrIndexBuild)
	}

	return e.install(doc.OwnerID, doc.ID, gen, chunks, vectors)
}

// InitializePrepared installs an index from already chunked and embedded
// data, e.g. rehydrated from the persistent store after ingest. It runs
// under the same per-pair build serialization as Initialize.
func (e *Engine) InitializePrepared(ownerID, docID string, chunks []domain.Chunk, vectors [][]float32) (*IndexHandle, error) {
	gen, err := e.beginBuild(ownerID, docID)
	if err != nil {
		return nil, err
	}
	return e.install(ownerID, docID, gen, chunks, vectors)
}

// prepare runs the chunk and embed stages.
func (e *Engine) prepare(ctx context.Context, doc domain.Document) ([]domain.Chunk, [][]float32, error) {
	chunks, err := e.chunker.Chunk(doc.ID, doc.Text)
	if err != nil {
		return nil, nil, err
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	var vectors [][]float32
	err = retry.Do(ctx, e.cfg.Retry, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = e.embedder.Embed(ctx, texts)
		return embedErr
	})
	if err != nil {
		return nil, nil, err
	}
	return chunks, vectors, nil
}

func (e *Engine) beginBuild(ownerID, docID string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := stateKey{ownerID, docID}
	st, ok := e.states[key]
	if !ok {
		st = &docState{}
		e.states[key] = st
	}
	if st.state == domain.Indexing {
		return 0, fmt.Errorf("document %s: %w", docID, domain.ErrBuildInProgress)
	}
	st.gen++
	st.state = domain.Indexing
	st.index = nil
	return st.gen, nil
}

func (e *Engine) abortBuild(ownerID, docID string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[stateKey{ownerID, docID}]; ok && st.gen == gen {
		st.state = domain.NotIndexed
	}
}

func (e *Engine) install(ownerID, docID string, gen uint64, chunks []domain.Chunk, vectors [][]float32) (*IndexHandle, error) {
	ix, err := index.Build(chunks, vectors)
	if err != nil {
		e.abortBuild(ownerID, docID, gen)
		return nil, fmt.Errorf("document %s: %v: %w", docID, err, domain.ErrIndexBuild)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.states[stateKey{ownerID, docID}]
	if !ok || st.gen != gen {
		// A newer upload superseded this build; discard the result.
		return nil, fmt.Errorf("document %s: build superseded by newer upload: %w", docID, domain.ErrIndexBuild)
	}
	st.index = ix
	st.state = domain.Ready

	return &IndexHandle{
		OwnerID:    ownerID,
		DocID:      docID,
		ChunkCount: len(chunks),
		chunks:     chunks,
	}, nil
}

// Ask answers a question from the document behind the handle, grounded in
// the top-k retrieved chunks. Every retrieved chunk becomes a citation in
// rank order; the retrieval set is the grounding evidence shown to the user
// whether or not the model's text names each source.
func (e *Engine) Ask(ctx context.Context, handle *IndexHandle, question string, k int) (domain.Answer, error) {
	if handle == nil {
		return domain.Answer{}, fmt.Errorf("ask: no document is active: %w", domain.ErrNotReady)
	}
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, fmt.Errorf("ask: empty question: %w", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = e.cfg.TopK
	}

	e.mu.Lock()
	st, ok := e.states[stateKey{handle.OwnerID, handle.DocID}]
	if !ok || st.state != domain.Ready || st.index == nil {
		state := domain.NotIndexed
		if ok {
			state = st.state
		}
		e.mu.Unlock()
		return domain.Answer{}, fmt.Errorf("ask: document %s is %s: %w", handle.DocID, state, domain.ErrNotReady)
	}
	ix := st.index
	e.mu.Unlock()

	var queryVec [][]float32
	err := retry.Do(ctx, e.cfg.Retry, func(ctx context.Context) error {
		var embedErr error
		queryVec, embedErr = e.embedder.Embed(ctx, []string{question})
		return embedErr
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("ask: embed question: %w", err)
	}

	retrieved, err := ix.Search(queryVec[0], k)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("ask: retrieve context: %w", err)
	}

	prompt, err := renderAnswerPrompt(question, retrieved)
	if err != nil {
		return domain.Answer{}, err
	}

	var text string
	err = retry.Do(ctx, e.cfg.Retry, func(ctx context.Context) error {
		var compErr error
		text, compErr = e.completer.Complete(ctx, prompt, port.CompleteOptions{MaxTokens: e.cfg.MaxAnswerTokens})
		return compErr
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("ask: completion for document %s: %v: %w", handle.DocID, err, domain.ErrAnswerService)
	}

	answer := domain.Answer{
		DocID:     handle.DocID,
		Question:  question,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	for _, sc := range retrieved {
		answer.Citations = append(answer.Citations, domain.Citation{
			ChunkID:      sc.Chunk.ID,
			Seq:          sc.Chunk.Seq,
			SectionTitle: sc.Chunk.SectionTitle,
			Text:         sc.Chunk.Text,
		})
	}
	if e.cfg.MinScore > 0 && len(retrieved) > 0 && retrieved[0].Score < e.cfg.MinScore {
		answer.LowConfidence = true
	}

	return answer, nil
}

// Chunks returns the chunks the handle's index was built from.
func (h *IndexHandle) Chunks() []domain.Chunk {
	return h.chunks
}

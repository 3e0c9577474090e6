package cli

import (
	"fmt"
	"os"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/store"
	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/internal/retry"
	"docqa/internal/usecase"
)

func storePath() string {
	return config.StoreDBPath(GetRootDir())
}

// openStore opens the document database under the data directory, creating
// the directory on first use.
func openStore() (*store.Bolt, error) {
	dir := GetRootDir()
	if err := config.EnsureDataDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(config.StoreDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return st, nil
}

// requireStore opens the store only if the database already exists; used by
// read-only commands that should not create an empty one.
func requireStore() (*store.Bolt, error) {
	dbPath := config.StoreDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no documents found. Run 'docqa ingest' first")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return st, nil
}

func buildEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(embedding.Config{
			APIKeyEnv: cfg.Embedding.APIKeyEnv,
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
			Timeout:   cfg.Embedding.Timeout(),
		})
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func buildCompleter(cfg *config.Config) (port.Completer, error) {
	switch cfg.Completion.Provider {
	case "openai":
		return llm.NewOpenAICompleter(llm.Config{
			APIKeyEnv: cfg.Completion.APIKeyEnv,
			BaseURL:   cfg.Completion.BaseURL,
			Model:     cfg.Completion.Model,
			Timeout:   cfg.Completion.Timeout(),
		})
	case "mock":
		return &llm.MockCompleter{Response: "(mock completion)"}, nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Completion.Provider)
	}
}

func retryPolicy(cfg *config.Config) retry.Policy {
	if cfg.Retry.MaxAttempts <= 0 {
		return retry.DefaultPolicy()
	}
	return retry.Policy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff(),
		MaxBackoff:     cfg.Retry.MaxBackoff(),
	}
}

// resolveDocument finds the document a command should operate on: the one
// whose ID has the given prefix, or the user's most recently ingested
// document when no ID is given.
func resolveDocument(st *store.Bolt, ownerID, idPrefix string) (domain.Document, error) {
	docs, err := st.ListDocuments(ownerID)
	if err != nil {
		return domain.Document{}, err
	}
	if len(docs) == 0 {
		return domain.Document{}, fmt.Errorf("no documents for user %s: %w", ownerID, domain.ErrNotFound)
	}

	if idPrefix == "" {
		latest := docs[0]
		for _, doc := range docs[1:] {
			if doc.CreatedAt.After(latest.CreatedAt) {
				latest = doc
			}
		}
		return latest, nil
	}

	var matches []domain.Document
	for _, doc := range docs {
		if doc.ID == idPrefix {
			return doc, nil
		}
		if len(idPrefix) >= 4 && len(doc.ID) >= len(idPrefix) && doc.ID[:len(idPrefix)] == idPrefix {
			matches = append(matches, doc)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return domain.Document{}, fmt.Errorf("document %s: %w", idPrefix, domain.ErrNotFound)
	default:
		return domain.Document{}, fmt.Errorf("document ID prefix %q is ambiguous (%d matches)", idPrefix, len(matches))
	}
}

// rehydrate rebuilds an in-memory index handle from persisted chunks and
// vectors, without re-embedding.
func rehydrate(st *store.Bolt, engine *usecase.Engine, doc domain.Document) (*usecase.IndexHandle, error) {
	chunks, err := st.GetChunks(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for %s: %w", doc.ID, err)
	}
	_, stored, err := st.GetVectors(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vectors for %s: %w", doc.ID, err)
	}
	vectors := make([][]float32, len(stored))
	for i, v := range stored {
		vectors[i] = v.Vector
	}
	return engine.InitializePrepared(doc.OwnerID, doc.ID, chunks, vectors)
}

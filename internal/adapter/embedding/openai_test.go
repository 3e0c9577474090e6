package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"docqa/internal/domain"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) (*OpenAIEmbedder, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("TEST_EMBED_KEY", "test-key")
	e, err := NewOpenAIEmbedder(Config{
		APIKeyEnv: "TEST_EMBED_KEY",
		BaseURL:   srv.URL,
		Model:     "test-model",
		Dimension: 3,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e, srv
}

func TestOpenAIEmbedderOrderAndBatching(t *testing.T) {
	var requests int
	e, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}

		resp := embeddingResponse{}
		// Return vectors out of order; index must repair ordering.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{
				Embedding: []float32{float32(len(req.Input[i])), 0, 0},
				Index:     i,
			})
		}
		json.NewEncoder(w).Encode(resp)
	})

	vectors, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatal(err)
	}
	if requests != 2 {
		t.Errorf("expected 2 batched requests, got %d", requests)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, want := range []float32{1, 2, 3} {
		if vectors[i][0] != want {
			t.Errorf("vector %d = %v, want first element %v", i, vectors[i], want)
		}
	}
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	e, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for invalid input")
	})

	_, err := e.Embed(context.Background(), []string{"ok", "   "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOpenAIEmbedderServiceFailure(t *testing.T) {
	e, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Errorf("expected ErrEmbeddingService, got %v", err)
	}
}

func TestOpenAIEmbedderDimensionCheck(t *testing.T) {
	e, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: []float32{1, 2}, Index: 0}},
		})
	})

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)

	a, err := e.Embed(context.Background(), []string{"the deadline is March 5th"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), []string{"the deadline is March 5th"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("mock embedding is not deterministic")
		}
	}
}

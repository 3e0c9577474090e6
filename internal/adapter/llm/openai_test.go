package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docqa/internal/port"
)

func TestOpenAICompleterSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if req.MaxTokens != 150 {
			t.Errorf("max_tokens = %d", req.MaxTokens)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "ping") {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"  pong \n"}}]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_LLM_KEY", "key")
	c, err := NewOpenAICompleter(Config{APIKeyEnv: "TEST_LLM_KEY", BaseURL: srv.URL, Model: "test-model"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Complete(context.Background(), "ping", port.CompleteOptions{MaxTokens: 150})
	if err != nil {
		t.Fatal(err)
	}
	if got != "pong" {
		t.Errorf("Complete = %q, want %q", got, "pong")
	}
}

func TestOpenAICompleterAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("TEST_LLM_KEY", "key")
	c, err := NewOpenAICompleter(Config{APIKeyEnv: "TEST_LLM_KEY", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Complete(context.Background(), "ping", port.CompleteOptions{}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestOpenAICompleterMissingKey(t *testing.T) {
	t.Setenv("TEST_LLM_KEY_ABSENT", "")
	if _, err := NewOpenAICompleter(Config{APIKeyEnv: "TEST_LLM_KEY_ABSENT"}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cliofer/docchat/config"
	"github.com/cliofer/docchat/models"
)

func testLLMConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:        "openai",
		APIKey:          "test-key",
		BaseURL:         baseURL,
		CompletionModel: "gpt-4o-mini",
		EmbeddingModel:  "text-embedding-3-small",
		Temperature:     0.2,
		MaxTokens:       256,
		Timeout:         5 * time.Second,
	}
}

func TestEmbedBatch(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2}},
				{"object": "embedding", "index": 1, "embedding": []float32{0.3, 0.4}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(testLLMConfig(srv.URL))
	vecs, err := c.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotPath != "/embeddings" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody.Model != "text-embedding-3-small" || len(gotBody.Input) != 2 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if len(vecs) != 2 || vecs[0][0] != 0.1 || vecs[1][1] != 0.4 {
		t.Fatalf("unexpected vectors: %v", vecs)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	c := NewClient(testLLMConfig("http://unused"))
	vecs, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs != nil {
		t.Fatalf("expected nil, got %v", vecs)
	}
}

func TestEmbedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testLLMConfig(srv.URL))
	_, err := c.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, models.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(testLLMConfig(srv.URL))
	_, err := c.Embed(context.Background(), []string{"one", "two"})
	if !errors.Is(err, models.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	var gotPath string
	var gotBody completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"the answer"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(testLLMConfig(srv.URL))
	answer, err := c.Complete(context.Background(), "assembled prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "the answer" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody.Model != "gpt-4o-mini" || gotBody.MaxTokens != 256 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" || gotBody.Messages[0].Content != "assembled prompt" {
		t.Fatalf("unexpected messages: %+v", gotBody.Messages)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(testLLMConfig(srv.URL))
	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, models.ErrCompletion) {
		t.Fatalf("expected ErrCompletion, got %v", err)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testLLMConfig(srv.URL))
	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, models.ErrCompletion) {
		t.Fatalf("expected ErrCompletion, got %v", err)
	}
}

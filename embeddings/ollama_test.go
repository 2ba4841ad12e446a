package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaEmbedderBatchesTexts(t *testing.T) {
	var gotInputs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotInputs = req.Input
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}},
		})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(Options{
		OllamaHost: server.URL,
		Model:      "all-minilm",
		Dimension:  3,
	})

	vectors, err := embedder.Embed(context.Background(), []string{"first chunk", "second chunk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != 3 {
			t.Fatalf("vector %d has %d dimensions, want 3", i, len(vec))
		}
	}
	if len(gotInputs) != 2 {
		t.Fatalf("expected both texts in one request, got %d", len(gotInputs))
	}
}

func TestOllamaEmbedderReportsBackendErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(Options{
		OllamaHost: server.URL,
		Model:      "missing-model",
		Dimension:  384,
	})

	_, err := embedder.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("error must carry the backend status, got: %v", err)
	}
	if strings.Contains(err.Error(), "dimension") {
		t.Fatalf("backend failure must not surface as a dimension mismatch: %v", err)
	}
}

func TestOllamaEmbedderVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.1}}})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(Options{OllamaHost: server.URL, Model: "all-minilm"})

	if _, err := embedder.Embed(context.Background(), []string{"one", "two"}); err == nil {
		t.Fatal("expected error when vector count does not match input count")
	}
}

func TestOllamaEmbedderDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.1, 0.2}}})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(Options{
		OllamaHost: server.URL,
		Model:      "all-minilm",
		Dimension:  384,
	})

	if _, err := embedder.Embed(context.Background(), []string{"text"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

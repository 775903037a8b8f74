package openaiembed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	tandem "github.com/tandem-ai/tandem"
)

func embeddingServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			data[i] = map[string]any{"embedding": vec, "index": i, "object": "embedding"}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
}

func TestNewValidation(t *testing.T) {
	if _, err := New("", "text-embedding-3-small"); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := New("key", ""); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestDefaultDimensions(t *testing.T) {
	small, err := New("key", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if small.Dimensions() != 1536 {
		t.Errorf("small Dimensions = %d, want 1536", small.Dimensions())
	}

	large, err := New("key", "text-embedding-3-large")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if large.Dimensions() != 3072 {
		t.Errorf("large Dimensions = %d, want 3072", large.Dimensions())
	}

	custom, err := New("key", "custom-model", WithDimensions(256))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if custom.Dimensions() != 256 {
		t.Errorf("custom Dimensions = %d, want 256", custom.Dimensions())
	}
}

func TestEmbedBatch(t *testing.T) {
	ts := embeddingServer(t, 4)
	defer ts.Close()

	p, err := New("key", "test-model", WithBaseURL(ts.URL+"/v1"), WithDimensions(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vecs, err := p.Embed(context.Background(), []string{"alpha", "bravo"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	// Order follows input order via the index field.
	if vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Errorf("vectors out of order: %v", vecs)
	}
	for i, v := range vecs {
		if len(v) != 4 {
			t.Errorf("vector %d has %d dimensions, want 4", i, len(v))
		}
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	p, err := New("key", "test-model")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vecs, err := p.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil): %v", err)
	}
	if vecs != nil {
		t.Errorf("got %v, want nil for empty input", vecs)
	}
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	p, err := New("key", "test-model")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Embed(context.Background(), []string{"ok", ""})
	var verr *tandem.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	ts := embeddingServer(t, 4)
	defer ts.Close()

	// Provider declares 8 dimensions but the server returns 4.
	p, err := New("key", "test-model", WithBaseURL(ts.URL+"/v1"), WithDimensions(8))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Embed(context.Background(), []string{"text"})
	var derr *tandem.DimensionError
	if !errors.As(err, &derr) {
		t.Fatalf("got %v, want DimensionError", err)
	}
	if derr.Want != 8 || derr.Got != 4 {
		t.Errorf("DimensionError = %+v", derr)
	}
}

func TestEmbedAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	p, err := New("bad-key", "test-model", WithBaseURL(ts.URL+"/v1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Embed(context.Background(), []string{"text"})
	var lerr *tandem.ErrLLM
	if !errors.As(err, &lerr) {
		t.Fatalf("got %v, want ErrLLM", err)
	}
	if lerr.Backend != "openai" {
		t.Errorf("Backend = %q, want openai", lerr.Backend)
	}
}

func TestName(t *testing.T) {
	p, err := New("key", "text-embedding-3-small")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "openai-text-embedding-3-small" {
		t.Errorf("Name = %q", p.Name())
	}
}

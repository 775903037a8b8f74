package azure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	tandem "github.com/tandem-ai/tandem"
)

func TestNewValidation(t *testing.T) {
	if _, err := New("", "https://e", "d"); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := New("k", "", "d"); err == nil {
		t.Error("expected error for missing endpoint")
	}
	if _, err := New("k", "https://e", ""); err == nil {
		t.Error("expected error for missing deployment")
	}
}

func TestChat(t *testing.T) {
	var gotPath, gotKey string
	var gotBody chatBody

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-2024",
			"choices": []map[string]any{
				{"message": map[string]string{"content": "  the answer  "}},
			},
			"usage": map[string]int{
				"prompt_tokens":     12,
				"completion_tokens": 7,
				"total_tokens":      19,
			},
		})
	}))
	defer ts.Close()

	p, err := New("secret", ts.URL, "gpt-4o", WithAPIVersion("2024-08-06"), WithMaxTokens(256))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Chat(context.Background(), tandem.ChatRequest{
		Messages: []tandem.ChatMessage{tandem.UserMessage("hello")},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if gotPath != "/openai/deployments/gpt-4o/chat/completions?api-version=2024-08-06" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api-key header = %q", gotKey)
	}
	if gotBody.MaxTokens != 256 {
		t.Errorf("max_tokens = %d, want 256", gotBody.MaxTokens)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "hello" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}

	if resp.Content != "the answer" {
		t.Errorf("Content = %q, want trimmed answer", resp.Content)
	}
	if resp.Model != "gpt-4o-2024" {
		t.Errorf("Model = %q", resp.Model)
	}
	if resp.Usage == nil || resp.Usage.Total != 19 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestChatHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	p, err := New("k", ts.URL, "d")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Chat(context.Background(), tandem.ChatRequest{})
	var herr *tandem.ErrHTTP
	if !errors.As(err, &herr) {
		t.Fatalf("got %v, want ErrHTTP", err)
	}
	if herr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", herr.Status)
	}
}

func TestChatConnectionError(t *testing.T) {
	p, err := New("k", "http://127.0.0.1:1", "d")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Chat(context.Background(), tandem.ChatRequest{})
	var lerr *tandem.ErrLLM
	if !errors.As(err, &lerr) {
		t.Fatalf("got %v, want ErrLLM", err)
	}
	if lerr.Backend != "azure" {
		t.Errorf("Backend = %q, want azure", lerr.Backend)
	}
}

func TestChatNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer ts.Close()

	p, err := New("k", ts.URL, "my-deployment")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Chat(context.Background(), tandem.ChatRequest{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "No response generated." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "my-deployment" {
		t.Errorf("Model = %q, want deployment fallback", resp.Model)
	}
}

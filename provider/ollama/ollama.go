// Package ollama implements the local generation backend against an Ollama
// server's /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	tandem "github.com/tandem-ai/tandem"
)

const defaultBaseURL = "http://localhost:11434"

// Provider implements tandem.Provider against a local Ollama server.
// The model is loaded on first use and kept warm by the server afterwards.
type Provider struct {
	baseURL   string
	model     string
	maxTokens int
	temp      float64
	client    *http.Client
	logger    *slog.Logger

	preloadMu   sync.Mutex
	loaded      bool
	skipPreload bool
}

var _ tandem.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the Ollama server address.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) Option {
	return func(p *Provider) { p.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Provider) { p.temp = t }
}

// WithTimeout overrides the HTTP client timeout. Local generation on CPU
// can be slow, so the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithoutPreload disables the warm-up request before the first generation.
func WithoutPreload() Option {
	return func(p *Provider) { p.skipPreload = true }
}

// New creates a local provider for the given model name.
func New(model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama: model name required")
	}
	p := &Provider{
		baseURL:   defaultBaseURL,
		model:     model,
		maxTokens: 512,
		temp:      0.7,
		client:    &http.Client{Timeout: 120 * time.Second},
		logger:    tandem.NopLogger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name returns "ollama".
func (p *Provider) Name() string { return "ollama" }

// buildPrompt flattens chat messages into a single llama-style prompt with
// role delimiter tokens, closed by an assistant marker so the model
// continues as the assistant.
func buildPrompt(messages []tandem.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case "system":
			b.WriteString("<|system|>\n")
		case "assistant":
			b.WriteString("<|assistant|>\n")
		default:
			b.WriteString("<|user|>\n")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("<|assistant|>\n")
	return b.String()
}

type generateBody struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int      `json:"num_predict"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// ensureLoaded issues an empty-prompt generate to pull the model into
// memory. Concurrent first callers block on one load; a failed load is
// returned to the caller and retried on the next call, so a transient
// server error does not wedge the provider.
func (p *Provider) ensureLoaded(ctx context.Context) error {
	if p.skipPreload {
		return nil
	}
	p.preloadMu.Lock()
	defer p.preloadMu.Unlock()
	if p.loaded {
		return nil
	}
	p.logger.Debug("ollama: preloading model", "model", p.model)
	if _, err := p.generate(ctx, generateBody{Model: p.model, Stream: false}); err != nil {
		return err
	}
	p.loaded = true
	return nil
}

func (p *Provider) generate(ctx context.Context, body generateBody) (generateResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return generateResponse{}, fmt.Errorf("ollama: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return generateResponse{}, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return generateResponse{}, &tandem.ErrLLM{Backend: "ollama", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return generateResponse{}, &tandem.ErrHTTP{Status: resp.StatusCode, Body: string(raw)}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return generateResponse{}, fmt.Errorf("ollama: decode response: %w", err)
	}
	return parsed, nil
}

// Chat generates a completion for the messages on the local model.
func (p *Provider) Chat(ctx context.Context, req tandem.ChatRequest) (tandem.ChatResponse, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return tandem.ChatResponse{}, fmt.Errorf("ollama: load model %s: %w", p.model, err)
	}

	body := generateBody{
		Model:  p.model,
		Prompt: buildPrompt(req.Messages),
		Stream: false,
		Options: generateOptions{
			NumPredict:  p.maxTokens,
			Temperature: p.temp,
			Stop:        []string{"<|user|>", "<|system|>"},
		},
	}

	p.logger.Debug("ollama: generating", "model", p.model, "prompt_len", len(body.Prompt))

	parsed, err := p.generate(ctx, body)
	if err != nil {
		return tandem.ChatResponse{}, err
	}

	model := parsed.Model
	if model == "" {
		model = p.model
	}

	return tandem.ChatResponse{
		Content: strings.TrimSpace(parsed.Response),
		Model:   model,
		Usage: &tandem.TokenUsage{
			Prompt:     parsed.PromptEvalCount,
			Completion: parsed.EvalCount,
			Total:      parsed.PromptEvalCount + parsed.EvalCount,
		},
	}, nil
}

// Package azure implements the remote generation backend against the Azure
// OpenAI chat completions API.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tandem "github.com/tandem-ai/tandem"
)

// defaultTimeout bounds the network call; the remote backend may block for
// seconds, never unboundedly.
const defaultTimeout = 60 * time.Second

// Provider implements tandem.Provider for Azure OpenAI.
type Provider struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	maxTokens  int
	temp       float64
	client     *http.Client
	logger     *slog.Logger
}

var _ tandem.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithAPIVersion overrides the Azure OpenAI API version.
func WithAPIVersion(v string) Option {
	return func(p *Provider) { p.apiVersion = v }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) Option {
	return func(p *Provider) { p.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Provider) { p.temp = t }
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates an Azure OpenAI provider. endpoint is the resource URL
// (https://<resource>.openai.azure.com); deployment is the model deployment
// name. The request path and api-version query are appended automatically.
func New(apiKey, endpoint, deployment string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("azure: api key required")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("azure: endpoint required")
	}
	if deployment == "" {
		return nil, fmt.Errorf("azure: deployment name required")
	}
	p := &Provider{
		apiKey:     apiKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		deployment: deployment,
		apiVersion: "2023-05-15",
		maxTokens:  1024,
		temp:       0.7,
		client:     &http.Client{Timeout: defaultTimeout},
		logger:     tandem.NopLogger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name returns "azure".
func (p *Provider) Name() string { return "azure" }

type chatBody struct {
	Messages    []tandem.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends the messages to the chat completions deployment. The system
// and user roles pass through unchanged; Azure receives the same framing
// the dispatcher built.
func (p *Provider) Chat(ctx context.Context, req tandem.ChatRequest) (tandem.ChatResponse, error) {
	body, err := json.Marshal(chatBody{
		Messages:    req.Messages,
		MaxTokens:   p.maxTokens,
		Temperature: p.temp,
	})
	if err != nil {
		return tandem.ChatResponse{}, fmt.Errorf("azure: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, p.deployment, p.apiVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return tandem.ChatResponse{}, fmt.Errorf("azure: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	p.logger.Debug("azure: sending chat request", "deployment", p.deployment, "messages", len(req.Messages))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return tandem.ChatResponse{}, &tandem.ErrLLM{Backend: "azure", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return tandem.ChatResponse{}, &tandem.ErrHTTP{Status: resp.StatusCode, Body: string(data)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return tandem.ChatResponse{}, fmt.Errorf("azure: decode response: %w", err)
	}

	content := "No response generated."
	if len(parsed.Choices) > 0 {
		content = strings.TrimSpace(parsed.Choices[0].Message.Content)
	}

	model := parsed.Model
	if model == "" {
		model = p.deployment
	}

	return tandem.ChatResponse{
		Content: content,
		Model:   model,
		Usage: &tandem.TokenUsage{
			Prompt:     parsed.Usage.PromptTokens,
			Completion: parsed.Usage.CompletionTokens,
			Total:      parsed.Usage.TotalTokens,
		},
	}, nil
}

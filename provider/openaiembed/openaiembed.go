// Package openaiembed provides embeddings through the OpenAI API (or any
// compatible endpoint, including Azure OpenAI with a base URL override).
package openaiembed

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	tandem "github.com/tandem-ai/tandem"
)

// Provider implements tandem.EmbeddingProvider over the OpenAI embeddings
// endpoint.
type Provider struct {
	client *openai.Client
	model  string
	dim    int
	logger *slog.Logger
}

var _ tandem.EmbeddingProvider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*options)

type options struct {
	baseURL string
	dim     int
	logger  *slog.Logger
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithDimensions overrides the embedding dimension for models the library
// does not know about.
func WithDimensions(d int) Option {
	return func(o *options) { o.dim = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates an embedding provider for the given model.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaiembed: api key required")
	}
	if model == "" {
		return nil, fmt.Errorf("openaiembed: model name required")
	}

	o := options{logger: tandem.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}

	dim := o.dim
	if dim == 0 {
		switch model {
		case "text-embedding-3-large":
			dim = 3072
		default:
			// text-embedding-3-small and ada-002
			dim = 1536
		}
	}

	return &Provider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dim,
		logger: o.logger,
	}, nil
}

// Name returns "openai-" plus the model name.
func (p *Provider) Name() string { return "openai-" + p.model }

// Dimensions returns the embedding vector length.
func (p *Provider) Dimensions() int { return p.dim }

// Embed returns one vector per input text, in input order, as a single
// batched API call.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if t == "" {
			return nil, &tandem.ValidationError{Msg: fmt.Sprintf("empty text at position %d", i)}
		}
	}

	p.logger.Debug("requesting embeddings", "model", p.model, "texts", len(texts))

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	})
	if err != nil {
		return nil, &tandem.ErrLLM{Backend: "openai", Message: err.Error()}
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openaiembed: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openaiembed: embedding index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		if len(v) != p.dim {
			return nil, &tandem.DimensionError{Want: p.dim, Got: len(v)}
		}
		out[d.Index] = v
	}
	return out, nil
}

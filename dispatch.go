package tandem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// groundedSystemPrompt instructs a backend to answer strictly from the
// supplied context and to cite the document number it used.
const groundedSystemPrompt = `You are a helpful assistant. Answer the user's question based only on the provided context.
If the context doesn't contain the information needed to answer the question, say you don't know and don't make up information.
Be concise but thorough, and cite which document you used by referring to its number.`

// Dispatcher assembles context-grounded prompts and invokes the selected
// generation backend, normalizing success and failure into one
// GenerationResult shape. It holds no mutable state and is safe for
// concurrent use.
type Dispatcher struct {
	local  Provider
	remote Provider
	logger *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets a structured logger for dispatch decisions.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a Dispatcher over a local and a remote backend.
func NewDispatcher(local, remote Provider, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{local: local, remote: remote, logger: slog.New(discardHandler{})}
	for _, o := range opts {
		o(d)
	}
	return d
}

// FormatContext renders retrieved documents as a numbered, source-labelled
// block. The numbering is 1-based so backends can cite "Document [n]".
func FormatContext(docs []SearchResult) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		source := doc.Source
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&b, "Document [%d] (from %s): %s", i+1, source, doc.Text)
	}
	return b.String()
}

// buildMessages produces the backend-agnostic prompt. With context it is a
// system instruction plus a user message embedding the numbered documents;
// without context the query passes through as-is. Providers decide how the
// roles reach the model (chat roles for remote, concatenated role markers
// for local).
func buildMessages(query string, docs []SearchResult) []ChatMessage {
	if len(docs) == 0 {
		return []ChatMessage{UserMessage(query)}
	}
	user := fmt.Sprintf("I need information from the following context:\n\n%s\n\nBased on this context, please answer my question: %s",
		FormatContext(docs), query)
	return []ChatMessage{
		SystemMessage(groundedSystemPrompt),
		UserMessage(user),
	}
}

// Generate invokes the backend chosen by the routing decision and measures
// wall-clock latency around the call. A backend failure never propagates:
// it is converted into a result with Backend == "error" carrying the cause
// and the elapsed time measured so far.
func (d *Dispatcher) Generate(ctx context.Context, query string, docs []SearchResult, backend Backend) GenerationResult {
	provider := d.provider(backend)
	start := time.Now()

	if provider == nil {
		return GenerationResult{
			Response: fmt.Sprintf("Error: no provider configured for backend %q", backend),
			Backend:  "error",
			Elapsed:  time.Since(start),
		}
	}

	d.logger.Debug("dispatch: generating", "backend", backend, "provider", provider.Name(), "context_docs", len(docs))

	resp, err := provider.Chat(ctx, ChatRequest{Messages: buildMessages(query, docs)})
	elapsed := time.Since(start)

	if err != nil {
		d.logger.Error("dispatch: backend failed", "backend", backend, "error", err, "elapsed", elapsed)
		return GenerationResult{
			Response: fmt.Sprintf("Error: failed to generate response from %s backend. %v", backend, err),
			Backend:  "error",
			Elapsed:  elapsed,
		}
	}

	d.logger.Debug("dispatch: generated", "backend", backend, "elapsed", elapsed)
	return GenerationResult{
		Response: strings.TrimSpace(resp.Content),
		Backend:  string(backend),
		Model:    resp.Model,
		Elapsed:  elapsed,
		Usage:    resp.Usage,
	}
}

func (d *Dispatcher) provider(backend Backend) Provider {
	switch backend {
	case BackendLocal:
		return d.local
	case BackendRemote:
		return d.remote
	}
	return nil
}

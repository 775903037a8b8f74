package tandem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Answer is what the serving layer receives for a query: the normalized
// generation result plus the routing decision so callers can render
// provenance.
type Answer struct {
	GenerationResult
	Routing     RoutingDecision `json:"routing"`
	ContextDocs int             `json:"context_docs"`
	QueryTime   time.Duration   `json:"-"`
}

// IngestResult holds the outcome of ingesting one document.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunks"`
}

// Assistant orchestrates the pipeline: retrieve context from the index,
// route the query, dispatch generation. Each call runs synchronously from
// the caller's perspective; the Assistant itself holds no mutable state, so
// many calls may run concurrently.
type Assistant struct {
	index      Index
	router     *Router
	dispatcher *Dispatcher
	chunker    DocumentChunker
	docs       DocumentStore // nil if not configured
	topK       int
	logger     *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

func WithIndex(idx Index) AssistantOption {
	return func(a *Assistant) { a.index = idx }
}

func WithRouter(r *Router) AssistantOption {
	return func(a *Assistant) { a.router = r }
}

func WithDispatcher(d *Dispatcher) AssistantOption {
	return func(a *Assistant) { a.dispatcher = d }
}

func WithChunker(c DocumentChunker) AssistantOption {
	return func(a *Assistant) { a.chunker = c }
}

func WithDocumentStore(s DocumentStore) AssistantOption {
	return func(a *Assistant) { a.docs = s }
}

func WithTopK(k int) AssistantOption {
	return func(a *Assistant) { a.topK = k }
}

func WithLogger(l *slog.Logger) AssistantOption {
	return func(a *Assistant) { a.logger = l }
}

// NewAssistant creates an Assistant with the given options. Index,
// Dispatcher, and Chunker are required for the operations that use them;
// Router defaults to NewRouter().
func NewAssistant(opts ...AssistantOption) *Assistant {
	a := &Assistant{
		router: NewRouter(),
		topK:   3,
		logger: NopLogger(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Query answers a question. Context is retrieved from the index, the query
// is routed (unless force names a backend, which bypasses the Router and is
// recorded as the routing reason), and the chosen backend generates the
// answer from the retrieved context.
func (a *Assistant) Query(ctx context.Context, query string, force Backend) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, &ValidationError{Msg: "empty query"}
	}
	if force != "" && !force.Valid() {
		return Answer{}, &ValidationError{Msg: fmt.Sprintf("unknown backend %q", force)}
	}
	if a.index == nil || a.dispatcher == nil {
		return Answer{}, fmt.Errorf("assistant requires Index and Dispatcher")
	}

	start := time.Now()

	docs, err := a.index.Search(ctx, query, a.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("search context: %w", err)
	}

	var decision RoutingDecision
	if force != "" {
		decision = RoutingDecision{
			RouteTo:    force,
			IsSimple:   force == BackendLocal,
			Reason:     "forced route to " + string(force),
			Confidence: 1,
			HasContext: len(docs) > 0,
		}
	} else {
		decision = a.router.Route(query, docs)
	}

	a.logger.Debug("assistant: routed query",
		"route_to", decision.RouteTo, "is_simple", decision.IsSimple,
		"reason", decision.Reason, "context_docs", len(docs))

	result := a.dispatcher.Generate(ctx, query, docs, decision.RouteTo)

	return Answer{
		GenerationResult: result,
		Routing:          decision,
		ContextDocs:      len(docs),
		QueryTime:        time.Since(start),
	}, nil
}

// Ingest chunks already-extracted document text, adds the chunks to the
// index, and records the document in the registry when one is configured.
// Format extraction is the caller's responsibility.
func (a *Assistant) Ingest(ctx context.Context, text, filename string) (IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return IngestResult{}, &ValidationError{Msg: "empty document text"}
	}
	if a.index == nil || a.chunker == nil {
		return IngestResult{}, fmt.Errorf("assistant requires Index and Chunker")
	}

	chunks := a.chunker.Process(text, filename)

	if err := a.index.Add(ctx, chunks); err != nil {
		return IngestResult{}, fmt.Errorf("index chunks: %w", err)
	}

	docID := NewID()
	if a.docs != nil {
		doc := Document{
			ID:         docID,
			Filename:   filename,
			SizeBytes:  int64(len(text)),
			ChunkCount: len(chunks),
			CreatedAt:  NowUnix(),
		}
		if err := a.docs.Add(ctx, doc); err != nil {
			// The chunks are already durable in the index; a registry
			// failure should not undo the ingest.
			a.logger.Error("assistant: record document failed", "filename", filename, "error", err)
		}
	}

	a.logger.Info("assistant: ingested document", "filename", filename, "chunks", len(chunks))
	return IngestResult{DocumentID: docID, Filename: filename, ChunkCount: len(chunks)}, nil
}

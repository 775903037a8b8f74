package tandem

import "context"

// Provider abstracts a generation backend. Both the local and the remote
// backend implement it; the Dispatcher selects between them by Backend tag.
type Provider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Name returns the provider name (e.g. "ollama", "azure").
	Name() string
}

// EmbeddingProvider abstracts text embedding.
type EmbeddingProvider interface {
	// Embed returns embedding vectors for the given texts, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}

// Index abstracts the vector index the assistant searches and ingests into.
type Index interface {
	// Add embeds and stores chunks. Durable on successful return.
	Add(ctx context.Context, chunks []Chunk) error
	// Search returns up to topK results ranked by similarity.
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
	// Len returns the number of stored vectors.
	Len() int
}

// DocumentChunker converts extracted document text into retrieval chunks.
type DocumentChunker interface {
	Process(text, source string) []Chunk
}

// DocumentStore records ingested documents. Deleting a record does not
// remove the document's vectors from the index; stale entries remain
// searchable until the index is rebuilt.
type DocumentStore interface {
	Add(ctx context.Context, doc Document) error
	List(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, id string) error
}

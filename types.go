package tandem

import "time"

// --- Domain types ---

// Chunk is a bounded, overlap-aware segment of a document's text, the unit
// of retrieval. Chunks are immutable once created; ID is a deterministic
// fingerprint of (source, index, text prefix) so re-processing an unchanged
// document yields identical ids.
type Chunk struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// Document is a registry record for an ingested document. It tracks what was
// ingested, not the text itself; the index owns the searchable content.
type Document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	SizeBytes  int64  `json:"size_bytes"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  int64  `json:"created_at"`
}

// SearchResult is one retrieval hit. Score is 1 minus the raw index
// distance: a relative ranking signal, not a bounded probability. It can go
// negative for very dissimilar vectors.
type SearchResult struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"similarity_score"`
}

// Backend identifies a generation backend.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

// Valid reports whether b names a known backend.
func (b Backend) Valid() bool {
	return b == BackendLocal || b == BackendRemote
}

// RoutingDecision is the per-query choice of backend, with rationale.
// Ephemeral; never persisted.
type RoutingDecision struct {
	RouteTo    Backend `json:"route_to"`
	IsSimple   bool    `json:"is_simple"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	HasContext bool    `json:"has_context"`
}

// TokenUsage holds backend-reported token counts.
type TokenUsage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
	Total      int `json:"total_tokens"`
}

// GenerationResult is the normalized output of a generation call.
// Backend is "local", "remote", or "error" when the call failed and the
// dispatcher converted the failure. Usage is nil for backends that do not
// report token counts.
type GenerationResult struct {
	Response string        `json:"response"`
	Backend  string        `json:"backend"`
	Model    string        `json:"model,omitempty"`
	Elapsed  time.Duration `json:"-"`
	Usage    *TokenUsage   `json:"usage,omitempty"`
}

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Content string      `json:"content"`
	Model   string      `json:"model,omitempty"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}

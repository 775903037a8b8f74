// Package ingest turns raw document content into retrieval chunks: format
// extraction, boundary-aware splitting, and deterministic chunk identity.
package ingest

import "strings"

// Chunker splits text into segments suitable for embedding.
type Chunker interface {
	Chunk(text string) []string
}

// separators tried in priority order when searching for a chunk boundary.
// The first priority with any match inside the span wins.
var separators = []string{"\n\n", ".", " "}

// ChunkerOption configures a chunker.
type ChunkerOption func(*chunkerConfig)

type chunkerConfig struct {
	chunkSize int
	overlap   int
}

func defaultChunkerConfig() chunkerConfig {
	return chunkerConfig{chunkSize: 1000, overlap: 200}
}

// WithChunkSize sets the target chunk size in bytes.
func WithChunkSize(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.chunkSize = n }
}

// WithOverlap sets the overlap between consecutive chunks in bytes.
func WithOverlap(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.overlap = n }
}

// BoundaryChunker scans text left to right producing overlapping chunks that
// prefer to end at a paragraph break, then a sentence end, then a word
// boundary.
type BoundaryChunker struct {
	chunkSize int
	overlap   int
}

var _ Chunker = (*BoundaryChunker)(nil)

// NewBoundaryChunker creates a BoundaryChunker with the given options.
func NewBoundaryChunker(opts ...ChunkerOption) *BoundaryChunker {
	cfg := defaultChunkerConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &BoundaryChunker{chunkSize: cfg.chunkSize, overlap: cfg.overlap}
}

// Chunk splits text into trimmed, overlapping chunks. Each chunk targets
// chunkSize bytes but ends just after the last separator found inside its
// span; the next chunk starts overlap bytes before the previous end, forced
// forward whenever that would not advance. Terminates for all inputs.
func (bc *BoundaryChunker) Chunk(text string) []string {
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + bc.chunkSize
		if end > len(text) {
			end = len(text)
		} else {
			// Not at the end of the text: pull the boundary back to the
			// last separator inside [start, end).
			for _, sep := range separators {
				if last := strings.LastIndex(text[start:end], sep); last >= 0 {
					end = start + last + len(sep)
					break
				}
			}
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}

		next := end - bc.overlap
		if next <= start {
			// Degenerate overlap (overlap >= chunk span): force forward
			// progress so the scan terminates.
			next = end
		}
		start = next
	}

	return chunks
}

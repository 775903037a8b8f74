package ingest

import (
	"crypto/md5"
	"fmt"

	tandem "github.com/tandem-ai/tandem"
)

// Processor converts extracted document text into tandem.Chunks with
// deterministic ids, so re-processing an unchanged document produces the
// same chunks.
type Processor struct {
	chunker Chunker
}

var _ tandem.DocumentChunker = (*Processor)(nil)

// NewProcessor creates a Processor using the given chunker options.
func NewProcessor(opts ...ChunkerOption) *Processor {
	return &Processor{chunker: NewBoundaryChunker(opts...)}
}

// Process splits text into chunks attributed to source. Each chunk id is a
// fingerprint of (source, position, text prefix): the idempotent ingestion
// key.
func (p *Processor) Process(text, source string) []tandem.Chunk {
	pieces := p.chunker.Chunk(text)
	chunks := make([]tandem.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = tandem.Chunk{
			ID:          ChunkID(source, i, piece),
			Text:        piece,
			Source:      source,
			ChunkIndex:  i,
			TotalChunks: len(pieces),
		}
	}
	return chunks
}

// ChunkID computes the deterministic fingerprint for a chunk: the md5 of the
// source name, the chunk position, and the first 50 bytes of the text.
func ChunkID(source string, index int, text string) string {
	prefix := text
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", source, index, prefix)))
	return fmt.Sprintf("%x", sum)
}

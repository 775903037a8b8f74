// Package index implements a flat nearest-neighbor index over embedding
// vectors with synchronous file persistence. Search is brute-force squared
// L2 distance, the same contract as a flat FAISS index: exact, no
// approximation, suitable for the corpus sizes a single machine serves.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	tandem "github.com/tandem-ai/tandem"
)

// Meta is the per-vector metadata record, keyed by vector id. Vector ids are
// dense sequential integers assigned at insertion time; they are an internal
// detail of the index and must never be exposed as stable identifiers;
// only Chunk.ID is a stable external key.
type Meta struct {
	ChunkID     string `json:"chunk_id"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// Flat is a flat L2 vector index bound to one embedding provider. The
// embedding dimension is fixed when the index is opened; every vector added
// later must match it.
//
// Writers (Add, Rebuild) take an exclusive lock and persist to disk before
// releasing it, so a successful Add implies durability. Readers (Search,
// Len) take a shared lock and never observe a partially written state.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	meta    map[int]Meta
	dir     string
	emb     tandem.EmbeddingProvider
	logger  *slog.Logger

	// set when persisted artifacts disagree on load; the index refuses to
	// serve until Rebuild is called.
	inconsistent error
}

var _ tandem.Index = (*Flat)(nil)

// Option configures a Flat index.
type Option func(*Flat)

// WithLogger sets a structured logger for index operations.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flat) { f.logger = l }
}

// Open creates or loads a Flat index persisted under dir, embedding with
// emb. When exactly one of the two persisted artifacts exists, or their
// entry counts disagree, the index opens in an inconsistent state: Add and
// Search fail with InconsistentStateError until Rebuild is called.
func Open(dir string, emb tandem.EmbeddingProvider, opts ...Option) (*Flat, error) {
	f := &Flat{
		dim:    emb.Dimensions(),
		meta:   make(map[int]Meta),
		dir:    dir,
		emb:    emb,
		logger: tandem.NopLogger(),
	}
	for _, o := range opts {
		o(f)
	}

	if err := f.load(); err != nil {
		if state, ok := err.(*tandem.InconsistentStateError); ok {
			f.inconsistent = state
			f.logger.Error("index: opened inconsistent, rebuild required", "dir", dir, "error", state)
			return f, nil
		}
		return nil, err
	}

	f.logger.Debug("index: opened", "dir", dir, "vectors", len(f.vectors), "dim", f.dim)
	return f, nil
}

// Add embeds all chunk texts in one batch and appends the vectors and their
// metadata to the index, assigning dense monotonically increasing vector
// ids. The new state is persisted before Add returns; on any failure the
// in-memory index is left unchanged.
func (f *Flat) Add(ctx context.Context, chunks []tandem.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Embedding is a pure call; keep it outside the lock so concurrent
	// readers are not blocked on the provider.
	vectors, err := f.emb.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d texts", len(vectors), len(chunks))
	}
	for _, v := range vectors {
		if len(v) != f.dim {
			return &tandem.DimensionError{Want: f.dim, Got: len(v)}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inconsistent != nil {
		return f.inconsistent
	}

	// Vector ids continue from the current entry count: dense, monotonic,
	// never reused.
	base := len(f.vectors)
	f.vectors = append(f.vectors, vectors...)
	for i, c := range chunks {
		f.meta[base+i] = Meta{
			ChunkID:     c.ID,
			Text:        c.Text,
			Source:      c.Source,
			ChunkIndex:  c.ChunkIndex,
			TotalChunks: c.TotalChunks,
		}
	}

	if err := f.persistLocked(); err != nil {
		// Roll back the append so vector and metadata counts stay equal.
		f.vectors = f.vectors[:base]
		for i := range chunks {
			delete(f.meta, base+i)
		}
		return fmt.Errorf("persist index: %w", err)
	}

	f.logger.Debug("index: added chunks", "count", len(chunks), "total", len(f.vectors))
	return nil
}

// Search embeds the query once and returns up to topK results ordered by
// ascending distance. Raw distance d becomes score = 1 - d; treat it as a
// ranking signal, not a probability. Vector ids with no metadata record are
// skipped.
func (f *Flat) Search(ctx context.Context, query string, topK int) ([]tandem.SearchResult, error) {
	vectors, err := f.emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: no embedding returned")
	}
	q := vectors[0]
	if len(q) != f.dim {
		return nil, &tandem.DimensionError{Want: f.dim, Got: len(q)}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.inconsistent != nil {
		return nil, f.inconsistent
	}

	type scored struct {
		id   int
		dist float32
	}
	candidates := make([]scored, len(f.vectors))
	for i, v := range f.vectors {
		candidates[i] = scored{id: i, dist: squaredL2(q, v)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	var results []tandem.SearchResult
	for _, c := range candidates {
		if len(results) >= topK {
			break
		}
		m, ok := f.meta[c.id]
		if !ok {
			continue
		}
		results = append(results, tandem.SearchResult{
			Text:       m.Text,
			Source:     m.Source,
			ChunkIndex: m.ChunkIndex,
			Score:      1 - c.dist,
		})
	}
	return results, nil
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Rebuild discards all vectors and metadata and persists the empty state,
// clearing any inconsistency. Callers re-ingest source documents afterwards;
// this is the explicit recovery path for inconsistent artifacts and the only
// way to drop vectors of deleted documents.
func (f *Flat) Rebuild() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.vectors = nil
	f.meta = make(map[int]Meta)
	f.inconsistent = nil

	if err := f.persistLocked(); err != nil {
		return fmt.Errorf("persist rebuilt index: %w", err)
	}
	f.logger.Info("index: rebuilt empty", "dir", f.dir)
	return nil
}

// squaredL2 computes the squared Euclidean distance between two vectors of
// equal length.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

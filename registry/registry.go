// Package registry records ingested documents in pure-Go SQLite. It is
// bookkeeping only: the vector index owns the searchable content, and
// deleting a registry row leaves the document's vectors in the index until
// the index is rebuilt.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	tandem "github.com/tandem-ai/tandem"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a structured logger for the store. If not set, no logs
// are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements tandem.DocumentStore backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ tandem.DocumentStore = (*Store)(nil)

// New creates a Store using a local SQLite file at dbPath. A single shared
// connection serializes all goroutines through one writer, avoiding
// SQLITE_BUSY errors from concurrent independent connections.
func New(dbPath string, opts ...Option) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("registry: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: tandem.NopLogger()}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("registry: store opened", "path", dbPath)
	return s
}

// Init creates the documents table.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents(filename)`)

	s.logger.Debug("registry: init completed", "duration", time.Since(start))
	return nil
}

// Add inserts or replaces a document record.
func (s *Store) Add(ctx context.Context, doc tandem.Document) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, filename, size_bytes, chunk_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.SizeBytes, doc.ChunkCount, doc.CreatedAt,
	)
	if err != nil {
		s.logger.Error("registry: add document failed", "id", doc.ID, "error", err)
		return fmt.Errorf("add document: %w", err)
	}
	s.logger.Debug("registry: add document ok", "id", doc.ID, "filename", doc.Filename, "duration", time.Since(start))
	return nil
}

// Get returns a document by id.
func (s *Store) Get(ctx context.Context, id string) (tandem.Document, error) {
	var d tandem.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, size_bytes, chunk_count, created_at FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Filename, &d.SizeBytes, &d.ChunkCount, &d.CreatedAt)
	if err != nil {
		return tandem.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// List returns all documents, newest first.
func (s *Store) List(ctx context.Context) ([]tandem.Document, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, size_bytes, chunk_count, created_at FROM documents ORDER BY created_at DESC`)
	if err != nil {
		s.logger.Error("registry: list documents failed", "error", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []tandem.Document
	for rows.Next() {
		var d tandem.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.SizeBytes, &d.ChunkCount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	s.logger.Debug("registry: list documents ok", "count", len(docs), "duration", time.Since(start))
	return docs, rows.Err()
}

// Delete removes a document record. The document's vectors stay in the
// index and remain searchable until an index rebuild; that is documented
// behavior, not an oversight.
func (s *Store) Delete(ctx context.Context, id string) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		s.logger.Error("registry: delete document failed", "id", id, "error", err)
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete document: %w", sql.ErrNoRows)
	}
	s.logger.Debug("registry: delete document ok", "id", id, "duration", time.Since(start))
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("registry: closing store")
	return s.db.Close()
}

package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tandem "github.com/tandem-ai/tandem"
	"github.com/tandem-ai/tandem/ingest"
)

type fakeIndex struct {
	results []tandem.SearchResult
	added   []tandem.Chunk
}

func (f *fakeIndex) Add(_ context.Context, chunks []tandem.Chunk) error {
	f.added = append(f.added, chunks...)
	return nil
}
func (f *fakeIndex) Search(_ context.Context, _ string, _ int) ([]tandem.SearchResult, error) {
	return f.results, nil
}
func (f *fakeIndex) Len() int { return len(f.added) }

type fakeProvider struct {
	name string
	resp tandem.ChatResponse
	err  error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Chat(_ context.Context, _ tandem.ChatRequest) (tandem.ChatResponse, error) {
	return f.resp, f.err
}

type fakeDocStore struct {
	docs      []tandem.Document
	deleted   []string
	deleteErr error
}

func (f *fakeDocStore) Add(_ context.Context, doc tandem.Document) error {
	f.docs = append(f.docs, doc)
	return nil
}
func (f *fakeDocStore) List(_ context.Context) ([]tandem.Document, error) { return f.docs, nil }
func (f *fakeDocStore) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestServer(idx *fakeIndex, docs *fakeDocStore) *Server {
	local := &fakeProvider{name: "local", resp: tandem.ChatResponse{Content: "local answer", Model: "tinyllama"}}
	remote := &fakeProvider{name: "remote", resp: tandem.ChatResponse{Content: "remote answer", Model: "gpt-4o"}}

	assistant := tandem.NewAssistant(
		tandem.WithIndex(idx),
		tandem.WithDispatcher(tandem.NewDispatcher(local, remote)),
		tandem.WithChunker(ingest.NewProcessor()),
		tandem.WithDocumentStore(docs),
	)
	return New(assistant, docs)
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeIndex{}, &fakeDocStore{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestQuerySimple(t *testing.T) {
	idx := &fakeIndex{results: []tandem.SearchResult{{Text: "ctx", Source: "a.txt", Score: 0.9}}}
	s := newTestServer(idx, &fakeDocStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query":"What is the capital of France?"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Backend != "local" {
		t.Errorf("backend = %q, want local", body.Backend)
	}
	if body.Response != "local answer" {
		t.Errorf("response = %q", body.Response)
	}
	if body.Confidence != 0.8 {
		t.Errorf("confidence = %f, want 0.8", body.Confidence)
	}
	if body.Metadata.RoutingReason != "Simple query" {
		t.Errorf("routing reason = %q", body.Metadata.RoutingReason)
	}
	if body.Metadata.ContextDocs != 1 {
		t.Errorf("context docs = %d, want 1", body.Metadata.ContextDocs)
	}
}

func TestQueryForcedBackend(t *testing.T) {
	s := newTestServer(&fakeIndex{}, &fakeDocStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query":"What is Go?","force_backend":"remote"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Backend != "remote" {
		t.Errorf("backend = %q, want remote", body.Backend)
	}
	if body.Metadata.RoutingReason != "forced route to remote" {
		t.Errorf("routing reason = %q", body.Metadata.RoutingReason)
	}
	if body.Confidence != 1 {
		t.Errorf("confidence = %f, want 1", body.Confidence)
	}
}

func TestQueryValidationErrors(t *testing.T) {
	s := newTestServer(&fakeIndex{}, &fakeDocStore{})

	for name, payload := range map[string]string{
		"empty query":     `{"query":"  "}`,
		"unknown backend": `{"query":"q","force_backend":"cloud"}`,
		"bad json":        `{`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func multipartUpload(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fmt.Fprint(fw, content)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	idx := &fakeIndex{}
	docs := &fakeDocStore{}
	s := newTestServer(idx, docs)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, multipartUpload(t, "notes.txt", "Some document text to ingest."))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "success" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Filename != "notes.txt" {
		t.Errorf("filename = %q", body.Filename)
	}
	if body.Chunks != 1 {
		t.Errorf("chunks = %d, want 1", body.Chunks)
	}
	if len(idx.added) != 1 {
		t.Errorf("index received %d chunks", len(idx.added))
	}
	if len(docs.docs) != 1 {
		t.Errorf("registry received %d documents", len(docs.docs))
	}
}

func TestUploadUnsupportedType(t *testing.T) {
	s := newTestServer(&fakeIndex{}, &fakeDocStore{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, multipartUpload(t, "image.png", "binary"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported file type") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestUploadMissingFile(t *testing.T) {
	s := newTestServer(&fakeIndex{}, &fakeDocStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListDocuments(t *testing.T) {
	docs := &fakeDocStore{docs: []tandem.Document{
		{ID: "d1", Filename: "a.txt", ChunkCount: 2},
	}}
	s := newTestServer(&fakeIndex{}, docs)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Documents []tandem.Document `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Documents) != 1 || body.Documents[0].ID != "d1" {
		t.Errorf("documents = %+v", body.Documents)
	}
}

func TestListDocumentsEmpty(t *testing.T) {
	s := newTestServer(&fakeIndex{}, &fakeDocStore{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	// Empty list must serialize as [], not null.
	if !strings.Contains(rec.Body.String(), `"documents":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDeleteDocument(t *testing.T) {
	docs := &fakeDocStore{}
	s := newTestServer(&fakeIndex{}, docs)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/documents/d1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(docs.deleted) != 1 || docs.deleted[0] != "d1" {
		t.Errorf("deleted = %v", docs.deleted)
	}
}

func TestDeleteDocumentNotFound(t *testing.T) {
	docs := &fakeDocStore{deleteErr: fmt.Errorf("delete document: %w", sql.ErrNoRows)}
	s := newTestServer(&fakeIndex{}, docs)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/documents/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

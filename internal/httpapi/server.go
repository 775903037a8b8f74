// Package httpapi exposes the assistant over a small JSON HTTP API.
package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	tandem "github.com/tandem-ai/tandem"
	"github.com/tandem-ai/tandem/ingest"
	"github.com/tandem-ai/tandem/observer"
)

// maxUploadBytes bounds document uploads to keep memory use predictable.
const maxUploadBytes = 32 << 20

// Server routes HTTP requests to the assistant and the document registry.
type Server struct {
	assistant *tandem.Assistant
	docs      tandem.DocumentStore
	inst      *observer.Instruments // nil when the observer is disabled
	logger    *slog.Logger
	mux       *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithInstruments attaches OTEL instruments so query requests emit spans.
func WithInstruments(inst *observer.Instruments) Option {
	return func(s *Server) { s.inst = inst }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the server and registers its routes.
func New(assistant *tandem.Assistant, docs tandem.DocumentStore, opts ...Option) *Server {
	s := &Server{
		assistant: assistant,
		docs:      docs,
		logger:    tandem.NopLogger(),
		mux:       http.NewServeMux(),
	}
	for _, o := range opts {
		o(s)
	}

	s.mux.HandleFunc("GET /", s.handleHealth)
	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Hybrid AI Assistant API is running",
	})
}

type uploadResponse struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read upload: "+err.Error())
		return
	}

	text, err := ingest.Extract(content, header.Filename)
	if err != nil {
		var verr *tandem.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Error processing document: "+err.Error())
		return
	}

	result, err := s.assistant.Ingest(r.Context(), text, header.Filename)
	if err != nil {
		var verr *tandem.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("upload failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Error processing document: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename: result.Filename,
		Status:   "success",
		Chunks:   result.ChunkCount,
	})
}

type queryRequest struct {
	Query        string `json:"query"`
	ForceBackend string `json:"force_backend"`
}

type queryMetadata struct {
	IsSimpleQuery bool   `json:"is_simple_query"`
	RoutingReason string `json:"routing_reason"`
	ContextDocs   int    `json:"context_docs"`
}

type queryResponse struct {
	Response   string             `json:"response"`
	Backend    string             `json:"backend"`
	Model      string             `json:"model,omitempty"`
	Confidence float64            `json:"confidence"`
	QueryTime  float64            `json:"query_time"`
	Usage      *tandem.TokenUsage `json:"usage,omitempty"`
	Metadata   queryMetadata      `json:"metadata"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	ctx := r.Context()
	force := tandem.Backend(req.ForceBackend)

	var finish func(tandem.RoutingDecision, error)
	if s.inst != nil {
		ctx, finish = s.inst.StartQuery(ctx, req.Query, force != "")
	}

	answer, err := s.assistant.Query(ctx, req.Query, force)
	if finish != nil {
		finish(answer.Routing, err)
	}
	if err != nil {
		var verr *tandem.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Response:   answer.Response,
		Backend:    answer.Backend,
		Model:      answer.Model,
		Confidence: answer.Routing.Confidence,
		QueryTime:  answer.QueryTime.Seconds(),
		Usage:      answer.Usage,
		Metadata: queryMetadata{
			IsSimpleQuery: answer.Routing.IsSimple,
			RoutingReason: answer.Routing.Reason,
			ContextDocs:   answer.ContextDocs,
		},
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []tandem.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.docs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		s.logger.Error("delete document failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Vectors for the document stay in the index until it is rebuilt.
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Document %s deleted", id),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

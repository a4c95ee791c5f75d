// Package server exposes the answer pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/campusrag/campusrag/core/pipeline"
	"github.com/campusrag/campusrag/model"
)

const (
	retrievalFallback  = "I'm having trouble retrieving information at the moment. Please try again later."
	generationFallback = "I'm having trouble generating a response at the moment. Please try again later."
	timeoutFallback    = "The request took too long to process. Please try again."
)

// QueryRequest is the inbound API body.
type QueryRequest struct {
	Query string `json:"query"`
}

// CitationJSON is the machine-readable form of one citation.
type CitationJSON struct {
	Marker      string         `json:"marker"`
	ChunkID     string         `json:"chunk_id"`
	SourceIndex string         `json:"source_index"`
	Metadata    model.Metadata `json:"metadata,omitempty"`
}

// QueryResponse is the outbound API body. Answer carries inline HTML citation
// links; Citations is the machine-readable list.
type QueryResponse struct {
	Answer    string         `json:"answer"`
	Citations []CitationJSON `json:"citations"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
}

// Server wires the pipeline into HTTP handlers.
type Server struct {
	pipeline *pipeline.Pipeline
	mux      *http.ServeMux
	log      *slog.Logger
}

// New creates the HTTP server around a pipeline.
func New(p *pipeline.Pipeline, logger *slog.Logger) *Server {
	s := &Server{pipeline: p, mux: http.NewServeMux(), log: logger}
	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth reports liveness independently of the pipeline.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, QueryResponse{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	query, err := model.NewQuery(req.Query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, QueryResponse{
			Success: false,
			Error:   "query must not be empty",
		})
		return
	}

	response, err := s.pipeline.Answer(r.Context(), query)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    renderHTML(response),
		Citations: citationList(response),
		Success:   true,
	})
}

// writePipelineError maps the error taxonomy onto HTTP statuses with generic
// wording. Provider internals are logged, never surfaced.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var stage string
	var pipeErr *model.PipelineError
	if errors.As(err, &pipeErr) {
		stage = pipeErr.Stage
	}
	s.log.Error("Pipeline request failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)

	switch {
	case errors.Is(err, model.ErrInvalidQuery):
		writeJSON(w, http.StatusBadRequest, QueryResponse{
			Success: false,
			Error:   "query must not be empty",
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, QueryResponse{
			Answer:  timeoutFallback,
			Success: false,
			Error:   "request timed out",
		})
	default:
		fallback := generationFallback
		var embErr *model.EmbeddingError
		if errors.Is(err, model.ErrRetrievalUnavailable) || errors.As(err, &embErr) {
			fallback = retrievalFallback
		}
		writeJSON(w, http.StatusServiceUnavailable, QueryResponse{
			Answer:  fallback,
			Success: false,
			Error:   "upstream dependency unavailable",
		})
	}
}

// renderHTML replaces each citation marker in the body with a numbered HTML
// link resolving to the source. Sources without a usable URL get a derived
// common-data-set link, matching how answers were presented historically.
func renderHTML(response model.AttributedResponse) string {
	body := response.Body
	for marker, citation := range response.Citations {
		label := "[" + strings.Trim(marker, "[]S") + "]"
		link := fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, citationURL(citation), label)
		body = strings.ReplaceAll(body, marker, link)
	}
	return body
}

func citationURL(citation model.Citation) string {
	if url := citation.Metadata.String("url"); strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	name := citation.Metadata.String("title")
	if name == "" {
		name = citation.Metadata.String("source")
	}
	if name == "" {
		name = citation.ChunkID
	}
	slug := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(name, " ", "-"), ",", ""))
	return fmt.Sprintf("https://%s.edu/about/common-data-set", slug)
}

func citationList(response model.AttributedResponse) []CitationJSON {
	citations := make([]CitationJSON, 0, len(response.Citations))
	for _, citation := range response.Citations {
		citations = append(citations, CitationJSON{
			Marker:      citation.Marker,
			ChunkID:     citation.ChunkID,
			SourceIndex: citation.SourceIndex,
			Metadata:    citation.Metadata,
		})
	}
	sort.Slice(citations, func(i, j int) bool {
		return citations[i].Marker < citations[j].Marker
	})
	return citations
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

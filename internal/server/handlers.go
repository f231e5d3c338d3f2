package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sakthi-S29/trackwise/internal/ai"
	"github.com/Sakthi-S29/trackwise/internal/pipeline"
	"github.com/Sakthi-S29/trackwise/internal/record"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

// errorEnvelope is the JSON body of every failed response
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ingestResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Text    string `json:"text"`
}

// managedQueryResponse mirrors the managed API shape: the answer plus
// retrieval debug metadata.
type managedQueryResponse struct {
	Response        string          `json:"response"`
	OpenSearchDebug openSearchDebug `json:"opensearch_debug"`
}

type openSearchDebug struct {
	HitsCount int                `json:"hits_count"`
	FirstHit  *vectorindex.Entry `json:"first_hit"`
}

// localQueryResponse mirrors the self-hosted API shape
type localQueryResponse struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Indexed int    `json:"indexed"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var rec record.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not a valid record: "+err.Error())
		return
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entry, err := s.ingestor.Ingest(r.Context(), rec)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Message: "Indexed and updated texts.json successfully.",
		ID:      entry.ID,
		Text:    entry.Text,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not a valid query: "+err.Error())
		return
	}

	result, err := s.query.Query(r.Context(), req.Query)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	if s.options.Local {
		writeJSON(w, http.StatusOK, localQueryResponse{Query: result.Query, Answer: result.Answer})
		return
	}
	writeJSON(w, http.StatusOK, managedQueryResponse{
		Response: result.Answer,
		OpenSearchDebug: openSearchDebug{
			HitsCount: result.HitsCount,
			FirstHit:  result.FirstHit,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	resp := healthResponse{Status: "ok"}
	if s.index != nil {
		count, err := s.index.Count(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
			return
		}
		resp.Indexed = count
	}
	writeJSON(w, http.StatusOK, resp)
}

// writePipelineError maps pipeline failures onto status codes and the
// error envelope.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case ai.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case ai.IsTimeoutError(err), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		var provErr *ai.ProviderError
		if errors.As(err, &provErr) {
			s.log.Error("provider failure: %v", err)
			writeError(w, http.StatusBadGateway, "provider_error", err.Error())
			return
		}
		s.log.Error("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Kind: kind, Message: message}})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/docnav/internal/navigator"
	"github.com/dgallion1/docnav/internal/oracle"
)

const maxQueryBodyBytes = 1 << 20

type queryRequest struct {
	Query          string `json:"query"`
	MaxSteps       int    `json:"max_steps"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type batchRequest struct {
	Queries        []string `json:"queries"`
	MaxSteps       int      `json:"max_steps"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

type batchItem struct {
	Query  string            `json:"query"`
	Result *navigator.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func queryOptions(maxSteps, timeoutSeconds int) []navigator.QueryOption {
	return []navigator.QueryOption{
		navigator.WithMaxSteps(maxSteps),
		navigator.WithTimeout(time.Duration(timeoutSeconds) * time.Second),
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	res, err := s.deps.Engine.Query(r.Context(), doc.Index, req.Query, queryOptions(req.MaxSteps, req.TimeoutSeconds)...)
	if err != nil {
		s.log.Error("query failed", "doc_id", doc.Index.DocumentID, "error", err)
		jsonError(w, err.Error(), queryErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueryBatch(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	queries := make([]string, 0, len(req.Queries))
	for _, q := range req.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		jsonError(w, "at least one query is required", http.StatusBadRequest)
		return
	}
	if len(queries) > s.cfg.Server.BatchLimit {
		jsonError(w, "too many queries in batch", http.StatusBadRequest)
		return
	}

	items, err := s.deps.Engine.QueryBatch(r.Context(), doc.Index, queries, s.cfg.Server.BatchWorkers, queryOptions(req.MaxSteps, req.TimeoutSeconds)...)
	if err != nil {
		jsonError(w, err.Error(), queryErrorStatus(err))
		return
	}
	out := make([]batchItem, len(items))
	for i, it := range items {
		out[i] = batchItem{Query: it.Query, Result: it.Result}
		if it.Err != nil {
			out[i].Error = it.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": doc.Index.DocumentID, "results": out})
}

// queryErrorStatus maps engine failures to HTTP status codes. An unreachable
// oracle is an upstream failure.
func queryErrorStatus(err error) int {
	var ue *oracle.UnavailableError
	switch {
	case errors.As(err, &ue):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

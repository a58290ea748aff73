package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kibitz-chess/kibitz/internal/engine"
	"github.com/kibitz-chess/kibitz/internal/model"
	"github.com/kibitz-chess/kibitz/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

// listAnalysesResponse wraps the paginated list response.
type listAnalysesResponse struct {
	Analyses []*model.Analysis `json:"analyses"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Async submissions validate positions up front so a bad FEN is rejected
	// here rather than surfacing later as a failed analysis.
	if err := engine.ValidatePositions(req.Positions); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	depth := req.Depth
	if depth == 0 {
		depth = s.dispatcher.DefaultDepth()
	}

	a := &model.Analysis{
		ID:        model.NewID(),
		Status:    model.StatusPending,
		Depth:     depth,
		Positions: req.Positions,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.runner.Submit(r.Context(), a); err != nil {
		s.logger.Error("submit analysis", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit analysis")
		return
	}

	s.writeJSON(w, http.StatusAccepted, a)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := s.store.GetAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		s.logger.Error("get analysis", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get analysis")
		return
	}

	s.writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	analyses, total, err := s.store.ListAnalyses(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list analyses", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}

	if analyses == nil {
		analyses = []*model.Analysis{}
	}

	s.writeJSON(w, http.StatusOK, listAnalysesResponse{
		Analyses: analyses,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

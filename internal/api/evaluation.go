package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kibitz-chess/kibitz/internal/engine"
	"github.com/kibitz-chess/kibitz/internal/model"
)

const (
	minDepth = 1
	maxDepth = 99
)

// batchRequest is the JSON body shared by POST /v1/evaluations and
// POST /v1/analyses: a list of FEN positions and an optional search depth
// applied to all of them.
type batchRequest struct {
	Positions []string `json:"positions"`
	Depth     int      `json:"depth"`
}

// validate checks the request shape. It does not touch the FENs themselves;
// position validation is the dispatcher's.
func (b *batchRequest) validate() error {
	if len(b.Positions) == 0 {
		return errors.New("positions is required")
	}
	if b.Depth != 0 && (b.Depth < minDepth || b.Depth > maxDepth) {
		return fmt.Errorf("depth must be between %d and %d", minDepth, maxDepth)
	}
	return nil
}

// handleCreateEvaluation evaluates a batch of positions synchronously and
// responds with the bare JSON array of results in input order.
func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
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

	reqs := make([]model.EvaluationRequest, len(req.Positions))
	for i, fen := range req.Positions {
		reqs[i] = model.EvaluationRequest{FEN: fen, Depth: req.Depth}
	}

	results, err := s.dispatcher.EvaluateBatch(r.Context(), reqs)
	if err != nil {
		var invalid *engine.InvalidPositionError
		if errors.As(err, &invalid) {
			s.writeError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		s.logger.Error("evaluate batch", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to evaluate positions")
		return
	}

	s.writeJSON(w, http.StatusOK, results)
}

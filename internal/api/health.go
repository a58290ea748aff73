package api

import (
	"encoding/json"
	"net/http"

	"github.com/kibitz-chess/kibitz/internal/engine"
	"github.com/kibitz-chess/kibitz/internal/model"
)

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok"}); err != nil {
		s.logger.Error("encode healthz response", "error", err)
	}
}

// handleEngineHealth runs a deep health check against the configured engine
// binary: a filesystem stat plus a short-lived probe process that must
// complete the handshake.
func (s *Server) handleEngineHealth(w http.ResponseWriter, r *http.Request) {
	health := engine.CheckHealth(r.Context(), s.engineCfg, s.logger)

	status := http.StatusOK
	if health.Status != model.EngineOK {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

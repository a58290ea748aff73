package api

import (
	"net/http"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Analyses analysisStats `json:"analyses"`
	Workers  workerStats   `json:"workers"`
}

type analysisStats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	PositionsTotal int            `json:"positions_total"`
	AvgDurationMS  float64        `json:"avg_duration_ms"`
}

type workerStats struct {
	Max      int `json:"max"`
	Starting int `json:"starting"`
	Ready    int `json:"ready"`
	Busy     int `json:"busy"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetAnalysisStats(r.Context())
	if err != nil {
		s.logger.Error("get analysis stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	ws := s.pool.Stats()

	s.writeJSON(w, http.StatusOK, statsResponse{
		Analyses: analysisStats{
			Total:          stats.Total,
			ByStatus:       stats.CountByStatus,
			PositionsTotal: stats.PositionsTotal,
			AvgDurationMS:  stats.AvgDurationMS,
		},
		Workers: workerStats{
			Max:      ws.Max,
			Starting: ws.Starting,
			Ready:    ws.Ready,
			Busy:     ws.Busy,
		},
	})
}

package store

import (
	"context"
	"errors"

	"github.com/kibitz-chess/kibitz/internal/model"
)

// ErrInvalidTransition is returned when an analysis status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// AnalysisStats holds aggregate statistics over stored analyses.
type AnalysisStats struct {
	Total          int            `json:"total"`
	CountByStatus  map[string]int `json:"count_by_status"`
	PositionsTotal int            `json:"positions_total"`
	AvgDurationMS  float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for analyses.
type Store interface {
	CreateAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, limit, offset int) ([]*model.Analysis, int, error)
	UpdateAnalysisStatus(ctx context.Context, id, status string) error
	UpdateAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysisStats(ctx context.Context) (*AnalysisStats, error)
	Close() error
}

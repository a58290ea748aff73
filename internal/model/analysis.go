package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Analysis status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// NewID generates a new ULID string for use as an entity identifier.
func NewID() string {
	return ulid.Make().String()
}

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Analysis represents a batch of positions submitted for asynchronous evaluation.
type Analysis struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	Depth      int                `json:"depth"`
	Positions  []string           `json:"positions"`
	Results    []EvaluationResult `json:"results,omitempty"`
	Error      string             `json:"error,omitempty"`
	DurationMS *int               `json:"duration_ms,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	StartedAt  *time.Time         `json:"started_at,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

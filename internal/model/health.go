package model

import "time"

// Engine health status constants.
const (
	EngineOK       = "ok"
	EngineDegraded = "degraded"
	EngineError    = "error"
)

// EngineHealth is the result of a deep engine health check: a stat of the
// configured binary plus a short-lived probe process that must complete the
// handshake.
type EngineHealth struct {
	Status       string    `json:"status"`
	EnginePath   string    `json:"engine_path"`
	ResolvedPath string    `json:"resolved_path,omitempty"`
	Executable   bool      `json:"executable"`
	ProbeOK      bool      `json:"probe_ok"`
	Error        string    `json:"error,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

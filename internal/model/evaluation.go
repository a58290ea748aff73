package model

// Evaluation result status constants.
const (
	ResultOK      = "ok"
	ResultTimeout = "timeout"
	ResultError   = "error"
)

// EvaluationRequest is a single position to evaluate. Depth <= 0 means the
// dispatcher's configured default.
type EvaluationRequest struct {
	FEN   string `json:"position"`
	Depth int    `json:"depth,omitempty"`
}

// EvaluationResult is the outcome of evaluating one position. Evaluation is
// nil when the request timed out or failed before the engine produced a score.
type EvaluationResult struct {
	FEN        string `json:"position"`
	BestMove   string `json:"move,omitempty"`
	Evaluation *Score `json:"evaluation"`
	Status     string `json:"status"`
}

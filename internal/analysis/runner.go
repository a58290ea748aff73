package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kibitz-chess/kibitz/internal/engine"
	"github.com/kibitz-chess/kibitz/internal/model"
	"github.com/kibitz-chess/kibitz/internal/store"
)

// Evaluator runs a batch of position evaluations and reports per-position
// results through the hook option. *engine.Dispatcher satisfies it.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, reqs []model.EvaluationRequest, opts ...engine.BatchOption) ([]model.EvaluationResult, error)
}

// Runner orchestrates asynchronous analysis execution.
type Runner struct {
	store     store.Store
	evaluator Evaluator
	logger    *slog.Logger
	wg        sync.WaitGroup
	broker    *Broker
}

// NewRunner creates a new analysis runner.
func NewRunner(s store.Store, ev Evaluator, logger *slog.Logger) *Runner {
	return &Runner{
		store:     s,
		evaluator: ev,
		logger:    logger,
		broker:    NewBroker(),
	}
}

// Broker returns the runner's progress broker for SSE subscription.
func (r *Runner) Broker() *Broker {
	return r.broker
}

// Submit creates an analysis record and launches asynchronous evaluation in a
// goroutine. The analysis is stored with status "pending" before returning.
// The goroutine operates on a copy of the analysis to avoid data races with
// the caller.
func (r *Runner) Submit(ctx context.Context, a *model.Analysis) error {
	if err := r.store.CreateAnalysis(ctx, a); err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}

	aCopy := *a
	r.wg.Go(func() {
		r.execute(&aCopy)
	})

	return nil
}

// Wait blocks until all in-flight analysis goroutines complete.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// execute runs the analysis lifecycle in a goroutine: pending→running→completed/failed.
func (r *Runner) execute(a *model.Analysis) {
	// Close the progress stream when evaluation finishes, regardless of outcome.
	defer r.broker.Close(a.ID)

	// Transition to running.
	if err := r.store.UpdateAnalysisStatus(context.Background(), a.ID, model.StatusRunning); err != nil {
		r.logger.Error("failed to transition to running", "analysis_id", a.ID, "error", err)
		r.finishFailed(a.ID, nil, fmt.Sprintf("failed to start: %v", err))
		return
	}

	// started_at marks the running transition, not submission.
	start := time.Now()

	reqs := make([]model.EvaluationRequest, len(a.Positions))
	for i, fen := range a.Positions {
		reqs[i] = model.EvaluationRequest{FEN: fen, Depth: a.Depth}
	}

	// Per-position timeouts inside the dispatcher bound the whole batch, so
	// no extra deadline is layered on here.
	results, err := r.evaluator.EvaluateBatch(context.Background(), reqs,
		engine.WithResultHook(func(index int, res model.EvaluationResult) {
			r.broker.Publish(a.ID, Event{Index: index, Result: res})
		}),
	)
	durationMS := int(time.Since(start).Milliseconds())

	if err != nil {
		r.finishFailed(a.ID, &start, err.Error())
		return
	}

	now := time.Now().UTC()
	startedAt := start.UTC()
	completed := &model.Analysis{
		ID:         a.ID,
		Status:     model.StatusCompleted,
		Results:    results,
		DurationMS: &durationMS,
		StartedAt:  &startedAt,
		FinishedAt: &now,
	}

	if err := r.store.UpdateAnalysis(context.Background(), completed); err != nil {
		r.logger.Error("failed to update completed analysis", "analysis_id", a.ID, "error", err)
	}
}

// finishFailed marks an analysis as failed with the given error message.
// startedAt may be nil if evaluation never started.
func (r *Runner) finishFailed(id string, startedAt *time.Time, errMsg string) {
	now := time.Now().UTC()
	var durationMS int
	if startedAt != nil {
		durationMS = int(time.Since(*startedAt).Milliseconds())
		utc := startedAt.UTC()
		startedAt = &utc
	}

	a := &model.Analysis{
		ID:         id,
		Status:     model.StatusFailed,
		Error:      errMsg,
		DurationMS: &durationMS,
		StartedAt:  startedAt,
		FinishedAt: &now,
	}

	if err := r.store.UpdateAnalysis(context.Background(), a); err != nil {
		r.logger.Error("failed to update failed analysis", "analysis_id", id, "error", err)
	}
}

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/notnil/chess"

	"github.com/kibitz-chess/kibitz/internal/model"
	"github.com/kibitz-chess/kibitz/internal/uci"
)

// Dispatcher defaults.
const (
	DefaultDepth       = 15
	DefaultEvalTimeout = 30 * time.Second
	DefaultStopDrain   = 2 * time.Second
)

// DispatcherConfig tunes the evaluation pipeline. Zero values fall back to
// the package defaults.
type DispatcherConfig struct {
	// DefaultDepth is the search depth used when a request does not set one.
	DefaultDepth int
	// EvalTimeout bounds a single position evaluation end to end.
	EvalTimeout time.Duration
	// StopDrain bounds how long a timed-out search may take to acknowledge
	// "stop" before the worker is written off.
	StopDrain time.Duration
}

// Dispatcher fans evaluation batches out across the worker pool, preserving
// input order in the results and isolating request failures from each other.
type Dispatcher struct {
	pool   *Pool
	cfg    DispatcherConfig
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given pool.
func NewDispatcher(pool *Pool, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.DefaultDepth <= 0 {
		cfg.DefaultDepth = DefaultDepth
	}
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = DefaultEvalTimeout
	}
	if cfg.StopDrain <= 0 {
		cfg.StopDrain = DefaultStopDrain
	}
	return &Dispatcher{pool: pool, cfg: cfg, logger: logger}
}

// DefaultDepth returns the search depth applied to requests that do not set
// their own.
func (d *Dispatcher) DefaultDepth() int {
	return d.cfg.DefaultDepth
}

// ValidatePositions checks every FEN in fens, returning an
// *InvalidPositionError for the first malformed one.
func ValidatePositions(fens []string) error {
	for i, fen := range fens {
		if _, err := chess.FEN(fen); err != nil {
			return &InvalidPositionError{Index: i, FEN: fen, Err: err}
		}
	}
	return nil
}

// BatchOption customizes a single EvaluateBatch call.
type BatchOption func(*BatchOptions)

// BatchOptions collects the per-call settings applied by BatchOption values.
// Callers normally use the With* constructors rather than filling this in.
type BatchOptions struct {
	// ResultHook, when set, is invoked as each position's result lands, with
	// the request's index in the input slice. It runs on evaluation goroutines
	// and must not block.
	ResultHook func(index int, res model.EvaluationResult)
}

// WithResultHook registers a callback invoked as each position's result
// lands, in completion order.
func WithResultHook(fn func(index int, res model.EvaluationResult)) BatchOption {
	return func(o *BatchOptions) {
		o.ResultHook = fn
	}
}

// EvaluateBatch evaluates every position in reqs and returns results in input
// order. Positions are validated up front; a malformed FEN rejects the whole
// batch before any worker is touched. The batch is processed in groups of at
// most the pool's capacity: group members run concurrently, groups run
// sequentially. One position timing out or erroring never aborts its
// siblings.
func (d *Dispatcher) EvaluateBatch(ctx context.Context, reqs []model.EvaluationRequest, opts ...BatchOption) ([]model.EvaluationResult, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}
	var o BatchOptions
	for _, opt := range opts {
		opt(&o)
	}

	fens := make([]string, len(reqs))
	for i, req := range reqs {
		fens[i] = req.FEN
	}
	if err := ValidatePositions(fens); err != nil {
		return nil, err
	}

	d.logger.Info("evaluating batch", "positions", len(reqs), "group_size", d.pool.Max())

	results := make([]model.EvaluationResult, len(reqs))
	groupSize := d.pool.Max()
	for start := 0; start < len(reqs); start += groupSize {
		end := min(start+groupSize, len(reqs))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Go(func() {
				res := d.evaluate(ctx, reqs[i])
				results[i] = res
				metricEvaluations.WithLabelValues(res.Status).Inc()
				if o.ResultHook != nil {
					o.ResultHook(i, res)
				}
			})
		}
		wg.Wait()
	}
	return results, nil
}

// evaluate runs one position through one worker. Every path hands the worker
// back to the pool exactly once.
func (d *Dispatcher) evaluate(ctx context.Context, req model.EvaluationRequest) model.EvaluationResult {
	res := model.EvaluationResult{FEN: req.FEN, Status: model.ResultError}

	acquireStart := time.Now()
	w, err := d.pool.Acquire(ctx)
	if err != nil {
		d.logger.Error("failed to acquire engine worker", "error", err)
		return res
	}
	metricAcquireWait.Observe(time.Since(acquireStart).Seconds())
	defer d.pool.Release(w)

	lines, unsub, err := w.Subscribe()
	if err != nil {
		d.logger.Error("failed to subscribe to engine output", "worker_id", w.ID(), "error", err)
		return res
	}
	defer unsub()

	depth := req.Depth
	if depth <= 0 {
		depth = d.cfg.DefaultDepth
	}
	if err := w.Send(uci.SetPosition(req.FEN)); err != nil {
		d.logger.Error("failed to send position", "worker_id", w.ID(), "error", err)
		return res
	}
	if err := w.Send(uci.GoDepth(depth)); err != nil {
		d.logger.Error("failed to start search", "worker_id", w.ID(), "error", err)
		return res
	}

	start := time.Now()
	timer := time.NewTimer(d.cfg.EvalTimeout)
	defer timer.Stop()

	var analysis uci.Analysis
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				d.logger.Warn("engine worker died during evaluation", "worker_id", w.ID())
				return res
			}
			if analysis.Feed(line) {
				move, score := analysis.Result()
				res.BestMove = move
				res.Evaluation = &score
				res.Status = model.ResultOK
				metricEvalDuration.Observe(time.Since(start).Seconds())
				return res
			}
		case <-timer.C:
			d.logger.Warn("evaluation timed out", "worker_id", w.ID(), "depth", depth, "timeout", d.cfg.EvalTimeout)
			d.stopSearch(w, lines)
			res.Status = model.ResultTimeout
			return res
		case <-ctx.Done():
			d.stopSearch(w, lines)
			return res
		}
	}
}

// stopSearch interrupts a running search and drains the worker's output until
// the terminal bestmove, so the stale line cannot leak into the next exchange
// on this worker. A worker that does not acknowledge stop within the drain
// window is terminated; the pool reaps it and spawns a replacement on demand.
func (d *Dispatcher) stopSearch(w *Process, lines <-chan string) {
	_ = w.Send(uci.CmdStop)

	drain := time.NewTimer(d.cfg.StopDrain)
	defer drain.Stop()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, ok := uci.ParseBestMove(line); ok {
				return
			}
		case <-drain.C:
			d.logger.Warn("engine ignored stop, terminating worker", "worker_id", w.ID())
			w.Terminate()
			return
		}
	}
}

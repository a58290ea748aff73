package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kibitz-chess/kibitz/internal/analysis"
	"github.com/kibitz-chess/kibitz/internal/engine"
	"github.com/kibitz-chess/kibitz/internal/model"
	"github.com/kibitz-chess/kibitz/internal/store"
)

// stubEvaluator stands in for the dispatcher on the async path. It returns
// one ok result per position and invokes the result hook the way the real
// dispatcher does.
type stubEvaluator struct{}

func (e *stubEvaluator) EvaluateBatch(ctx context.Context, reqs []model.EvaluationRequest, opts ...engine.BatchOption) ([]model.EvaluationResult, error) {
	var o engine.BatchOptions
	for _, opt := range opts {
		opt(&o)
	}

	results := make([]model.EvaluationResult, len(reqs))
	for i, req := range reqs {
		score := model.CentipawnScore(25)
		res := model.EvaluationResult{
			FEN:        req.FEN,
			BestMove:   "e2e4",
			Evaluation: &score,
			Status:     model.ResultOK,
		}
		results[i] = res
		if o.ResultHook != nil {
			o.ResultHook(i, res)
		}
	}
	return results, nil
}

// newTestServer wires a server over an in-memory store. The engine pool
// points at a binary that does not exist, so the synchronous path exercises
// per-position failure handling; the async path runs through a stub
// evaluator instead.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	cfg := engine.ProcessConfig{Path: "/nonexistent/stockfish", HandshakeTimeout: time.Second}
	pool := engine.NewPool(1, engine.NewSpawnFunc(cfg, logger), logger)
	t.Cleanup(pool.ShutdownAll)

	disp := engine.NewDispatcher(pool, engine.DispatcherConfig{EvalTimeout: time.Second}, logger)

	runner := analysis.NewRunner(s, &stubEvaluator{}, logger)
	t.Cleanup(runner.Wait)

	return NewServer(":0", s, pool, disp, runner, cfg, logger)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	if err != nil {
		t.Fatalf("GET /test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	// chi middleware.RequestID does not set X-Request-Id on the response by default,
	// but it sets it in the request context. Verify the middleware is active by
	// checking the request was processed successfully.
}

func TestPanicRecovery(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/panic")
	if err != nil {
		t.Fatalf("GET /panic: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest("OPTIONS", ts.URL+"/test", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /test: %v", err)
	}
	defer resp.Body.Close()

	if v := resp.Header.Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "*")
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kibitz-chess/kibitz/internal/model"
)

const (
	startposFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	aftere4FEN  = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
)

func TestCreateEvaluationInvalidJSON(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/evaluations", "application/json", bytes.NewBufferString("not json"))
	if err != nil {
		t.Fatalf("POST /v1/evaluations: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateEvaluationMissingPositions(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/evaluations", "application/json", bytes.NewBufferString(`{"positions":[]}`))
	if err != nil {
		t.Fatalf("POST /v1/evaluations: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	var errResp map[string]string
	json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp["error"] == "" {
		t.Error("expected error message in response")
	}
}

func TestCreateEvaluationDepthOutOfRange(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := `{"positions":["` + startposFEN + `"],"depth":100}`
	resp, err := http.Post(ts.URL+"/v1/evaluations", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /v1/evaluations: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateEvaluationInvalidFEN(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := `{"positions":["` + startposFEN + `","definitely not a chess position"]}`
	resp, err := http.Post(ts.URL+"/v1/evaluations", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /v1/evaluations: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	var errResp map[string]string
	json.NewDecoder(resp.Body).Decode(&errResp)
	if !strings.Contains(errResp["error"], "index 1") {
		t.Errorf("error = %q, want it to name the offending index", errResp["error"])
	}
}

// The pool points at a binary that does not exist, so each position comes
// back with an error status while the request itself still succeeds.
func TestCreateEvaluationEngineUnavailable(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := `{"positions":["` + startposFEN + `","` + aftere4FEN + `"]}`
	resp, err := http.Post(ts.URL+"/v1/evaluations", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /v1/evaluations: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var results []model.EvaluationResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, res := range results {
		if res.Status != model.ResultError {
			t.Errorf("results[%d].Status = %q, want %q", i, res.Status, model.ResultError)
		}
		if res.Evaluation != nil {
			t.Errorf("results[%d].Evaluation = %v, want nil", i, res.Evaluation)
		}
	}
	if results[0].FEN != startposFEN {
		t.Errorf("results[0].FEN = %q, want %q", results[0].FEN, startposFEN)
	}
}

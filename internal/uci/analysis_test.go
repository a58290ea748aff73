package uci

import (
	"testing"

	"github.com/kibitz-chess/kibitz/internal/model"
)

func TestAnalysisLastScoreWins(t *testing.T) {
	var a Analysis
	lines := []string{
		"info depth 10 score cp 12 nodes 1000",
		"info depth 14 score cp 25 nodes 40000",
		"info depth 18 score cp 37 nodes 900000 pv e2e4",
		"bestmove e2e4 ponder e7e5",
	}
	for i, line := range lines {
		done := a.Feed(line)
		wantDone := i == len(lines)-1
		if done != wantDone {
			t.Fatalf("Feed(%q) = %v, want %v", line, done, wantDone)
		}
	}
	move, score := a.Result()
	if move != "e2e4" {
		t.Errorf("move = %q, want e2e4", move)
	}
	if score != model.CentipawnScore(37) {
		t.Errorf("score = %+v, want cp 37", score)
	}
}

func TestAnalysisMateScore(t *testing.T) {
	var a Analysis
	a.Feed("info depth 20 score cp 850")
	a.Feed("info depth 22 score mate 3")
	if !a.Feed("bestmove d1h5") {
		t.Fatal("bestmove did not complete the analysis")
	}
	move, score := a.Result()
	if move != "d1h5" {
		t.Errorf("move = %q, want d1h5", move)
	}
	if score != model.MateScore(3) {
		t.Errorf("score = %+v, want mate in 3", score)
	}
	if score.String() != "mate in 3" {
		t.Errorf("score string = %q, want %q", score.String(), "mate in 3")
	}
}

func TestAnalysisScoreUnavailable(t *testing.T) {
	var a Analysis
	a.Feed("info string low on wall clock")
	if !a.Feed("bestmove g1f3") {
		t.Fatal("bestmove did not complete the analysis")
	}
	move, score := a.Result()
	if move != "g1f3" {
		t.Errorf("move = %q, want g1f3", move)
	}
	if score.Kind != model.ScoreUnavailable {
		t.Errorf("score kind = %q, want unavailable", score.Kind)
	}
}

func TestAnalysisIgnoresLinesAfterDone(t *testing.T) {
	var a Analysis
	a.Feed("info depth 10 score cp 42")
	a.Feed("bestmove e2e4")
	if !a.Feed("info depth 30 score cp -999") {
		t.Error("Feed after completion should keep reporting done")
	}
	move, score := a.Result()
	if move != "e2e4" || score != model.CentipawnScore(42) {
		t.Errorf("result changed after completion: %q %+v", move, score)
	}
	if !a.Done() {
		t.Error("Done() = false after bestmove")
	}
}

func TestAnalysisMalformedLinesAreSkipped(t *testing.T) {
	var a Analysis
	for _, line := range []string{
		"inf depth 10 score cp 1",
		"info depth score cp",
		"garbage",
		"",
	} {
		if a.Feed(line) {
			t.Fatalf("Feed(%q) reported done", line)
		}
	}
	if a.Done() {
		t.Error("malformed lines should not complete the analysis")
	}
}

package model

import (
	"encoding/json"
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusRunning, false},
		{"bogus", StatusRunning, false},
	}
	for _, c := range cases {
		if got := ValidTransition(c.from, c.to); got != c.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestScoreString(t *testing.T) {
	cases := []struct {
		score Score
		want  string
	}{
		{CentipawnScore(37), "0.37"},
		{CentipawnScore(-250), "-2.50"},
		{CentipawnScore(0), "0.00"},
		{MateScore(3), "mate in 3"},
		{MateScore(-2), "mate in -2"},
		{UnavailableScore(), "unavailable"},
	}
	for _, c := range cases {
		if got := c.score.String(); got != c.want {
			t.Errorf("Score.String() = %q, want %q", got, c.want)
		}
	}
}

func TestScoreMarshalJSON(t *testing.T) {
	cases := []struct {
		score Score
		want  string
	}{
		{CentipawnScore(37), "0.37"},
		{CentipawnScore(-12), "-0.12"},
		{CentipawnScore(100), "1"},
		{MateScore(3), `"mate in 3"`},
		{MateScore(-1), `"mate in -1"`},
		{UnavailableScore(), `"unavailable"`},
	}
	for _, c := range cases {
		data, err := json.Marshal(c.score)
		if err != nil {
			t.Fatalf("marshal %+v: %v", c.score, err)
		}
		if string(data) != c.want {
			t.Errorf("marshal %+v = %s, want %s", c.score, data, c.want)
		}
	}
}

func TestScoreUnmarshalJSON(t *testing.T) {
	cases := []struct {
		input string
		want  Score
	}{
		{"0.37", Score{Kind: ScoreCentipawns, Pawns: 0.37}},
		{"-2.5", Score{Kind: ScoreCentipawns, Pawns: -2.5}},
		{`"mate in 3"`, MateScore(3)},
		{`"mate in -2"`, MateScore(-2)},
		{`"unavailable"`, UnavailableScore()},
	}
	for _, c := range cases {
		var got Score
		if err := json.Unmarshal([]byte(c.input), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", c.input, err)
		}
		if got != c.want {
			t.Errorf("unmarshal %s = %+v, want %+v", c.input, got, c.want)
		}
	}
}

func TestScoreUnmarshalJSONRejectsGarbage(t *testing.T) {
	for _, input := range []string{`"mate in soon"`, `"winning"`, "true", `["cp"]`} {
		var s Score
		if err := json.Unmarshal([]byte(input), &s); err == nil {
			t.Errorf("unmarshal %s: expected error, got %+v", input, s)
		}
	}
}

func TestEvaluationResultJSONShape(t *testing.T) {
	score := CentipawnScore(37)
	res := EvaluationResult{FEN: "fen", BestMove: "e2e4", Evaluation: &score, Status: ResultOK}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"position":"fen","move":"e2e4","evaluation":0.37,"status":"ok"}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	timedOut := EvaluationResult{FEN: "fen", Status: ResultTimeout}
	data, err = json.Marshal(timedOut)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want = `{"position":"fen","evaluation":null,"status":"timeout"}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}
}

package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Score kind constants.
const (
	ScoreCentipawns  = "cp"
	ScoreMate        = "mate"
	ScoreUnavailable = "unavailable"
)

// Score is a single engine evaluation from the perspective of the side to move.
// Centipawn scores are carried in pawn units, so an engine report of "cp 37"
// becomes 0.37. Mate scores keep the signed distance reported by the engine.
type Score struct {
	Kind   string
	Pawns  float64
	MateIn int
}

// CentipawnScore builds a Score from a raw engine centipawn value.
func CentipawnScore(cp int) Score {
	return Score{Kind: ScoreCentipawns, Pawns: float64(cp) / 100}
}

// MateScore builds a Score for a forced mate in n moves. Negative n means the
// side to move is getting mated.
func MateScore(n int) Score {
	return Score{Kind: ScoreMate, MateIn: n}
}

// UnavailableScore builds the placeholder Score used when an engine reported a
// best move without any parseable evaluation.
func UnavailableScore() Score {
	return Score{Kind: ScoreUnavailable}
}

func (s Score) String() string {
	switch s.Kind {
	case ScoreCentipawns:
		return strconv.FormatFloat(s.Pawns, 'f', 2, 64)
	case ScoreMate:
		return fmt.Sprintf("mate in %d", s.MateIn)
	default:
		return ScoreUnavailable
	}
}

// MarshalJSON encodes centipawn scores as a bare number in pawn units, mate
// scores as the string "mate in n", and unavailable scores as "unavailable".
func (s Score) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ScoreCentipawns:
		return json.Marshal(s.Pawns)
	case ScoreMate:
		return json.Marshal(fmt.Sprintf("mate in %d", s.MateIn))
	case ScoreUnavailable:
		return json.Marshal(ScoreUnavailable)
	default:
		return nil, fmt.Errorf("unknown score kind %q", s.Kind)
	}
}

// UnmarshalJSON accepts the three encodings produced by MarshalJSON.
func (s *Score) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		s.Kind = ScoreCentipawns
		s.Pawns = v
		s.MateIn = 0
		return nil
	case string:
		if v == ScoreUnavailable {
			*s = UnavailableScore()
			return nil
		}
		if rest, ok := strings.CutPrefix(v, "mate in "); ok {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return fmt.Errorf("invalid mate score %q: %w", v, err)
			}
			*s = MateScore(n)
			return nil
		}
		return fmt.Errorf("invalid score string %q", v)
	default:
		return fmt.Errorf("invalid score value %s", string(data))
	}
}

package uci

import "github.com/kibitz-chess/kibitz/internal/model"

// Analysis accumulates the streamed output of a single "go" search. Engines
// emit many info lines before the terminal bestmove; the last score seen wins.
type Analysis struct {
	score    model.Score
	hasScore bool
	bestMove string
	done     bool
}

// Feed consumes one output line and reports whether the search is complete.
// Lines after the terminal bestmove are ignored.
func (a *Analysis) Feed(line string) bool {
	if a.done {
		return true
	}
	if s, ok := ParseInfoScore(line); ok {
		a.score = s
		a.hasScore = true
		return false
	}
	if move, ok := ParseBestMove(line); ok {
		a.bestMove = move
		a.done = true
		return true
	}
	return false
}

// Done reports whether the terminal bestmove line has been seen.
func (a *Analysis) Done() bool {
	return a.done
}

// Result returns the best move and the last score reported before it. When
// the engine produced a best move without any score line, the score kind is
// unavailable.
func (a *Analysis) Result() (string, model.Score) {
	if !a.hasScore {
		return a.bestMove, model.UnavailableScore()
	}
	return a.bestMove, a.score
}

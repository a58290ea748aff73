// Package uci speaks the text line protocol used by UCI chess engines:
// command formatting, handshake reply classification, and score extraction
// from streamed search output. It does no I/O; the engine package owns the
// process and its pipes.
package uci

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kibitz-chess/kibitz/internal/model"
)

// Commands with no arguments.
const (
	CmdUCI     = "uci"
	CmdIsReady = "isready"
	CmdNewGame = "ucinewgame"
	CmdStop    = "stop"
	CmdQuit    = "quit"
)

// Replies that terminate handshake phases.
const (
	ReplyUCIOK   = "uciok"
	ReplyReadyOK = "readyok"
)

// Option names shared by Stockfish-compatible engines.
const (
	OptionThreads = "Threads"
	OptionHash    = "Hash"
)

// SetPosition formats the command that loads a position from FEN.
func SetPosition(fen string) string {
	return "position fen " + fen
}

// GoDepth formats the command that starts a fixed-depth search.
func GoDepth(depth int) string {
	return fmt.Sprintf("go depth %d", depth)
}

// SetOption formats a setoption command.
func SetOption(name string, value any) string {
	return fmt.Sprintf("setoption name %s value %v", name, value)
}

// IsUCIOK reports whether line is the uciok handshake terminator.
func IsUCIOK(line string) bool {
	return strings.TrimSpace(line) == ReplyUCIOK
}

// IsReadyOK reports whether line is the readyok probe reply.
func IsReadyOK(line string) bool {
	return strings.TrimSpace(line) == ReplyReadyOK
}

// ParseBestMove extracts the move from a terminal "bestmove" line. ok is false
// for any other line. Engines emit "bestmove (none)" for positions with no
// legal moves; the raw token is passed through.
func ParseBestMove(line string) (move string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "bestmove" {
		return "", false
	}
	if len(fields) < 2 {
		return "", true
	}
	return fields[1], true
}

// ParseInfoScore extracts a score from an "info" search line, e.g.
// "info depth 18 seldepth 24 score cp 37 nodes 12345 pv e2e4". ok is false
// when the line is not an info line or carries no parseable score; callers
// treat that as no update rather than an error.
func ParseInfoScore(line string) (model.Score, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return model.Score{}, false
	}
	for i := 1; i+2 < len(fields); i++ {
		if fields[i] != "score" {
			continue
		}
		n, err := strconv.Atoi(fields[i+2])
		if err != nil {
			return model.Score{}, false
		}
		switch fields[i+1] {
		case "cp":
			return model.CentipawnScore(n), true
		case "mate":
			return model.MateScore(n), true
		}
		return model.Score{}, false
	}
	return model.Score{}, false
}

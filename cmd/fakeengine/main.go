// fakeengine is a minimal UCI engine for development and end-to-end testing.
// It completes the handshake, accepts positions, and answers every search
// with a deterministic evaluation derived from the position, after a short
// configurable thinking delay.
//
// Usage: go build -o fakeengine ./cmd/fakeengine
//        KIBITZ_ENGINE_PATH=./fakeengine kibitz serve
package main

import (
	"bufio"
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"time"
)

func main() {
	delay := flag.Duration("delay", 10*time.Millisecond, "thinking time per search")
	flag.Parse()

	in := bufio.NewScanner(os.Stdin)
	out := bufio.NewWriter(os.Stdout)

	var fen string
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		switch {
		case line == "uci":
			fmt.Fprintln(out, "id name fakeengine")
			fmt.Fprintln(out, "id author kibitz")
			fmt.Fprintln(out, "uciok")
		case line == "isready":
			fmt.Fprintln(out, "readyok")
		case line == "ucinewgame":
		case strings.HasPrefix(line, "setoption "):
			// Accepted and ignored.
		case strings.HasPrefix(line, "position fen "):
			fen = strings.TrimPrefix(line, "position fen ")
		case strings.HasPrefix(line, "go"):
			time.Sleep(*delay)
			fmt.Fprintf(out, "info depth 10 score cp %d pv e2e4\n", scoreFor(fen))
			fmt.Fprintln(out, "bestmove e2e4")
		case line == "stop":
			// Searches complete synchronously, so there is never one left to
			// interrupt. Real engines ignore stop when idle; so do we.
		case line == "quit":
			out.Flush()
			return
		}
		out.Flush()
	}
}

// scoreFor derives a stable centipawn score in [-100, 99] from the position,
// so distinct FENs get distinct but repeatable evaluations.
func scoreFor(fen string) int {
	h := fnv.New32a()
	h.Write([]byte(fen))
	return int(h.Sum32()%200) - 100
}

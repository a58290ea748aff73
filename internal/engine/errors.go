package engine

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned by EvaluateBatch when no positions were submitted.
var ErrEmptyBatch = errors.New("empty evaluation batch")

// ErrPoolClosed is returned by Acquire once the pool has shut down.
var ErrPoolClosed = errors.New("engine pool is closed")

// ErrProcessDead is returned when an operation needs a live engine process.
var ErrProcessDead = errors.New("engine process is dead")

// ErrSubscriberActive is returned by Subscribe while another subscriber holds
// the output stream.
var ErrSubscriberActive = errors.New("engine output already has a subscriber")

// SpawnError indicates the engine executable could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn engine %q: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// HandshakeError indicates a spawned engine process failed to complete the
// UCI handshake. The process has already been terminated when this is returned.
type HandshakeError struct {
	WorkerID string
	Err      error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("uci handshake failed for worker %s: %v", e.WorkerID, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// InvalidPositionError reports a malformed FEN within a batch. Index is the
// position's offset in the submitted batch.
type InvalidPositionError struct {
	Index int
	FEN   string
	Err   error
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("invalid position at index %d: %v", e.Index, e.Err)
}

func (e *InvalidPositionError) Unwrap() error { return e.Err }

// Package engine manages external UCI chess engine processes. It supervises
// each process behind a narrow handle, pools them with bounded concurrency
// and notification-based waiting, and dispatches evaluation batches across
// the pool with per-request timeouts and order-preserving results.
package engine

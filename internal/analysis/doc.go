// Package analysis provides the asynchronous batch analysis runner.
// It orchestrates the analysis lifecycle by fanning positions out to the
// engine worker pool, streaming per-position progress to SSE subscribers,
// and updating the store with results.
package analysis

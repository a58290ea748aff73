package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kibitz-chess/kibitz/internal/uci"
)

// SpawnFunc creates one fully initialized, ready engine worker. The pool
// calls it whenever capacity allows growing; it is injectable so tests can
// substitute pipe-backed fakes.
type SpawnFunc func(ctx context.Context) (*Process, error)

// NewSpawnFunc returns the production SpawnFunc: spawn the configured binary
// and run the UCI handshake.
func NewSpawnFunc(cfg ProcessConfig, logger *slog.Logger) SpawnFunc {
	return func(ctx context.Context) (*Process, error) {
		p, err := Spawn(cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := p.Initialize(ctx); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Pool maintains a bounded set of engine workers. Workers are spawned lazily
// up to the limit; callers waiting for capacity are woken by releases and
// worker deaths rather than polling. Dead workers leave the pool immediately,
// freeing their slot for a replacement on the next Acquire.
type Pool struct {
	max    int
	spawn  SpawnFunc
	logger *slog.Logger

	mu       sync.Mutex
	workers  []*Process
	reserved int // slots held by in-flight spawns
	closed   bool
	freed    chan struct{} // closed and replaced to broadcast availability

	done chan struct{}
}

// NewPool creates a pool bounded at max workers.
func NewPool(max int, spawn SpawnFunc, logger *slog.Logger) *Pool {
	if max < 1 {
		max = 1
	}
	return &Pool{
		max:    max,
		spawn:  spawn,
		logger: logger,
		freed:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Max returns the pool's worker limit.
func (p *Pool) Max() int {
	return p.max
}

// Acquire returns a ready worker claimed for the caller's exclusive use,
// spawning a fresh one when the pool has spare capacity. It blocks until a
// worker frees up, ctx is done, or the pool shuts down. The returned worker
// is never dead; callers must hand it back with Release exactly once.
func (p *Pool) Acquire(ctx context.Context) (*Process, error) {
	for {
		w, canSpawn, wait, err := p.claim()
		if err != nil {
			return nil, err
		}
		if w != nil {
			return w, nil
		}
		if canSpawn {
			return p.spawnWorker(ctx)
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.done:
			return nil, ErrPoolClosed
		}
	}
}

// claim flips an idle worker to busy, or reserves a spawn slot when capacity
// allows. When neither is possible it returns the current wait channel, which
// is closed by the next release or death; snapshotting it under the same lock
// closes the window where a wakeup could be missed.
func (p *Pool) claim() (w *Process, canSpawn bool, wait <-chan struct{}, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false, nil, ErrPoolClosed
	}
	for _, cand := range p.workers {
		if cand.transition(StateBusy) == nil {
			return cand, false, nil, nil
		}
	}
	if len(p.workers)+p.reserved < p.max {
		p.reserved++
		return nil, true, nil, nil
	}
	return nil, false, p.freed, nil
}

// spawnWorker runs the spawn function outside the pool lock, registers the
// worker, and claims it for the caller. The reserved slot is returned on any
// failure so a failed spawn never consumes capacity.
func (p *Pool) spawnWorker(ctx context.Context) (*Process, error) {
	w, err := p.spawn(ctx)
	if err != nil {
		p.unreserve()
		return nil, fmt.Errorf("spawn engine worker: %w", err)
	}
	if terr := w.transition(StateBusy); terr != nil {
		// The fresh worker died before we could claim it.
		p.unreserve()
		w.Terminate()
		return nil, fmt.Errorf("new engine worker unusable: %w", terr)
	}

	p.mu.Lock()
	p.reserved--
	p.workers = append(p.workers, w)
	closed := p.closed
	p.mu.Unlock()

	w.OnExit(p.handleExit)
	if closed {
		// Lost the race with ShutdownAll; the pool must not hand out workers
		// once closed.
		w.Terminate()
		return nil, ErrPoolClosed
	}

	p.logger.Info("engine worker joined pool", "worker_id", w.ID(), "pool_size", p.Stats().Live())
	p.publishStats()
	return w, nil
}

func (p *Pool) unreserve() {
	p.mu.Lock()
	p.reserved--
	p.mu.Unlock()
	p.broadcastFreed()
}

// Release hands a worker back after an exchange. The worker gets a cheap
// isready poke so a broken pipe surfaces promptly, then flips back to ready
// and waiters are woken. Workers that died mid-exchange are ignored here; the
// exit handler has already reclaimed their slot. Releasing twice is harmless.
func (p *Pool) Release(w *Process) {
	if w.State() == StateBusy {
		if err := w.Send(uci.CmdIsReady); err != nil {
			p.logger.Warn("release probe failed", "worker_id", w.ID(), "error", err)
		}
	}
	if err := w.transition(StateReady); err == nil {
		p.publishStats()
	}
	p.broadcastFreed()
}

// handleExit runs when a worker process dies: the worker is dropped from the
// pool so its slot is immediately available, and waiters are woken so one of
// them can spawn the replacement.
func (p *Pool) handleExit(w *Process) {
	p.mu.Lock()
	for i, cur := range p.workers {
		if cur == w {
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			break
		}
	}
	live := len(p.workers)
	p.mu.Unlock()

	p.logger.Warn("engine worker left pool", "worker_id", w.ID(), "pool_size", live)
	p.broadcastFreed()
	p.publishStats()
}

// broadcastFreed wakes every waiter by closing the current generation of the
// wait channel and installing a fresh one.
func (p *Pool) broadcastFreed() {
	p.mu.Lock()
	close(p.freed)
	p.freed = make(chan struct{})
	p.mu.Unlock()
}

// ShutdownAll terminates every worker and closes the pool. Waiters receive
// ErrPoolClosed. Safe to call more than once.
func (p *Pool) ShutdownAll() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	workers := p.workers
	p.workers = nil
	close(p.done)
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Go(w.Terminate)
	}
	wg.Wait()

	p.logger.Info("engine pool shut down", "workers", len(workers))
	p.publishStats()
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Max      int `json:"max"`
	Starting int `json:"starting"`
	Ready    int `json:"ready"`
	Busy     int `json:"busy"`
}

// Live returns the number of workers counted against the pool limit.
func (s Stats) Live() int {
	return s.Starting + s.Ready + s.Busy
}

// Stats counts workers by state. Reserved spawn slots count as starting.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Max: p.max, Starting: p.reserved}
	for _, w := range p.workers {
		switch w.State() {
		case StateStarting:
			s.Starting++
		case StateReady:
			s.Ready++
		case StateBusy:
			s.Busy++
		}
	}
	return s
}

// publishStats mirrors the current occupancy to the worker state gauge.
func (p *Pool) publishStats() {
	s := p.Stats()
	metricWorkers.WithLabelValues(StateStarting).Set(float64(s.Starting))
	metricWorkers.WithLabelValues(StateReady).Set(float64(s.Ready))
	metricWorkers.WithLabelValues(StateBusy).Set(float64(s.Busy))
}

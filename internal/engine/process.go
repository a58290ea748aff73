package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/kibitz-chess/kibitz/internal/model"
	"github.com/kibitz-chess/kibitz/internal/uci"
)

// Worker state constants.
const (
	StateStarting = "starting"
	StateReady    = "ready"
	StateBusy     = "busy"
	StateDead     = "dead"
)

// validStateTransitions maps each worker state to the set of states it may
// transition to. Dead is terminal.
var validStateTransitions = map[string]map[string]bool{
	StateStarting: {
		StateReady: true,
		StateDead:  true,
	},
	StateReady: {
		StateBusy: true,
		StateDead: true,
	},
	StateBusy: {
		StateReady: true,
		StateDead:  true,
	},
}

// outputBufferSize is the channel buffer for the output subscriber. Lines are
// dropped if the subscriber falls this far behind, which keeps the read pump
// from ever blocking on a slow consumer.
const outputBufferSize = 256

// killGracePeriod is how long Terminate waits for the engine to exit after
// "quit" before resorting to SIGKILL.
const killGracePeriod = 2 * time.Second

// DefaultHandshakeTimeout bounds the uci/isready handshake when the config
// does not set one.
const DefaultHandshakeTimeout = 5 * time.Second

// ProcessConfig describes how to spawn and configure one engine process.
// Threads and HashMB are applied via setoption during the handshake; zero
// values leave the engine's own defaults in place.
type ProcessConfig struct {
	Path             string
	Threads          int
	HashMB           int
	HandshakeTimeout time.Duration
}

// Process supervises a single external UCI engine process. All interaction
// goes through Send, Subscribe, and Terminate; the underlying exec.Cmd never
// leaks out. A single watch goroutine pumps stdout lines to the subscriber
// and reaps the process on exit.
type Process struct {
	id     string
	cfg    ProcessConfig
	logger *slog.Logger

	cmd    *exec.Cmd // nil for pipe-backed processes in tests
	stdin  io.WriteCloser
	stdout io.ReadCloser

	mu          sync.Mutex
	state       string
	sub         chan string
	subGen      int
	onExit      func(*Process)
	terminating bool

	done chan struct{} // closed when the watch goroutine has finished
}

// Spawn starts the engine executable and begins supervising it. The returned
// process is in the starting state; call Initialize to complete the UCI
// handshake before use.
func Spawn(cfg ProcessConfig, logger *slog.Logger) (*Process, error) {
	cmd := exec.Command(cfg.Path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Path: cfg.Path, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Path: cfg.Path, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: cfg.Path, Err: err}
	}

	p := newProcess(cfg, cmd, stdin, stdout, logger)
	metricSpawns.Inc()
	p.logger.Info("engine process started", "worker_id", p.id, "path", cfg.Path, "pid", cmd.Process.Pid)
	return p, nil
}

// newProcess wires up a process around existing pipes and starts the watch
// goroutine. cmd may be nil when the pipes are not backed by a real process.
func newProcess(cfg ProcessConfig, cmd *exec.Cmd, stdin io.WriteCloser, stdout io.ReadCloser, logger *slog.Logger) *Process {
	p := &Process{
		id:     model.NewID(),
		cfg:    cfg,
		logger: logger,
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		state:  StateStarting,
		done:   make(chan struct{}),
	}
	go p.watch()
	return p
}

// ID returns the worker's identifier.
func (p *Process) ID() string {
	return p.id
}

// State returns the worker's current lifecycle state.
func (p *Process) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// transition moves the worker to a new state, enforcing the transition table.
func (p *Process) transition(to string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !validStateTransitions[p.state][to] {
		return fmt.Errorf("invalid worker state transition %s -> %s", p.state, to)
	}
	p.state = to
	return nil
}

// Initialize completes the UCI handshake: uci/uciok, per-worker options, then
// isready/readyok. On success the worker is ready. On failure the process has
// been terminated and a HandshakeError is returned.
func (p *Process) Initialize(ctx context.Context) error {
	lines, unsub, err := p.Subscribe()
	if err != nil {
		p.Terminate()
		return &HandshakeError{WorkerID: p.id, Err: err}
	}
	defer unsub()

	timeout := p.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.handshake(ctx, lines); err != nil {
		p.Terminate()
		return &HandshakeError{WorkerID: p.id, Err: err}
	}
	if err := p.transition(StateReady); err != nil {
		p.Terminate()
		return &HandshakeError{WorkerID: p.id, Err: err}
	}
	p.logger.Debug("engine worker ready", "worker_id", p.id)
	return nil
}

func (p *Process) handshake(ctx context.Context, lines <-chan string) error {
	if err := p.Send(uci.CmdUCI); err != nil {
		return err
	}
	if err := awaitLine(ctx, lines, uci.IsUCIOK); err != nil {
		return fmt.Errorf("waiting for uciok: %w", err)
	}
	if p.cfg.Threads > 0 {
		if err := p.Send(uci.SetOption(uci.OptionThreads, p.cfg.Threads)); err != nil {
			return err
		}
	}
	if p.cfg.HashMB > 0 {
		if err := p.Send(uci.SetOption(uci.OptionHash, p.cfg.HashMB)); err != nil {
			return err
		}
	}
	if err := p.Send(uci.CmdIsReady); err != nil {
		return err
	}
	if err := awaitLine(ctx, lines, uci.IsReadyOK); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

// awaitLine reads from lines until one matches, the channel closes, or the
// context expires.
func awaitLine(ctx context.Context, lines <-chan string, match func(string) bool) error {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return ErrProcessDead
			}
			if match(line) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send writes one command line to the engine's stdin. Commands sent to a dead
// worker are logged and dropped rather than failing the caller. The write
// happens outside the state lock so a stalled pipe cannot block the output
// pump.
func (p *Process) Send(cmd string) error {
	p.mu.Lock()
	if p.state == StateDead {
		p.mu.Unlock()
		p.logger.Warn("dropping command to dead engine worker", "worker_id", p.id, "cmd", cmd)
		return nil
	}
	w := p.stdin
	p.mu.Unlock()

	if _, err := fmt.Fprintln(w, cmd); err != nil {
		return fmt.Errorf("send %q to worker %s: %w", cmd, p.id, err)
	}
	return nil
}

// Subscribe attaches the caller to the engine's output stream. At most one
// subscriber may be active at a time; a second concurrent Subscribe returns
// ErrSubscriberActive. Lines produced while nobody is subscribed are dropped.
// Subscribing to a dead worker returns an already-closed channel, and the
// active channel is closed when the worker dies, so readers never hang on a
// gone process.
func (p *Process) Subscribe() (<-chan string, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateDead {
		ch := make(chan string)
		close(ch)
		return ch, func() {}, nil
	}
	if p.sub != nil {
		return nil, nil, ErrSubscriberActive
	}

	ch := make(chan string, outputBufferSize)
	p.sub = ch
	p.subGen++
	gen := p.subGen

	unsub := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.subGen == gen && p.sub != nil {
			p.sub = nil
		}
	}
	return ch, unsub, nil
}

// OnExit registers a callback fired exactly once when the process dies. If
// the process is already dead the callback fires immediately.
func (p *Process) OnExit(fn func(*Process)) {
	p.mu.Lock()
	dead := p.state == StateDead
	if !dead {
		p.onExit = fn
	}
	p.mu.Unlock()
	if dead {
		fn(p)
	}
}

// Terminate shuts the process down: best-effort quit, a bounded grace period,
// then SIGKILL. It is idempotent and safe to call from multiple goroutines;
// every caller blocks until the process has been reaped.
func (p *Process) Terminate() {
	p.mu.Lock()
	already := p.terminating
	p.terminating = true
	p.mu.Unlock()

	if already {
		<-p.done
		return
	}

	_ = p.Send(uci.CmdQuit)
	_ = p.stdin.Close()

	select {
	case <-p.done:
		return
	case <-time.After(killGracePeriod):
	}

	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	} else {
		// No process behind the pipes; closing the read side unblocks the pump.
		_ = p.stdout.Close()
	}
	<-p.done
}

// watch is the process's single reader: it pumps stdout lines to the active
// subscriber, then reaps the process and marks the worker dead once the
// stream ends. Waiting only after the pump drains keeps exec.Cmd's pipe
// teardown safe.
func (p *Process) watch() {
	defer close(p.done)

	scanner := bufio.NewScanner(p.stdout)
	for scanner.Scan() {
		p.deliver(scanner.Text())
	}

	reason := deathClosed
	if p.cmd != nil {
		err := p.cmd.Wait()
		switch {
		case err == nil:
			reason = deathExited
			p.logger.Info("engine process exited", "worker_id", p.id)
		default:
			reason = deathError
			p.logger.Warn("engine process exited abnormally", "worker_id", p.id, "error", err)
		}
	}
	p.markDead(reason)
}

// deliver hands one output line to the active subscriber, dropping it when
// nobody is attached or the subscriber's buffer is full.
func (p *Process) deliver(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub == nil {
		return
	}
	select {
	case p.sub <- line:
	default:
	}
}

// markDead finalizes the worker: terminal state, subscriber channel closed,
// exit callback fired. Only the watch goroutine calls it, which guarantees no
// send can race the close.
func (p *Process) markDead(reason string) {
	p.mu.Lock()
	if p.state == StateDead {
		p.mu.Unlock()
		return
	}
	p.state = StateDead
	if p.sub != nil {
		close(p.sub)
		p.sub = nil
	}
	fn := p.onExit
	p.onExit = nil
	p.mu.Unlock()

	metricDeaths.WithLabelValues(reason).Inc()
	if fn != nil {
		fn(p)
	}
}

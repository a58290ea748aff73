package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kibitz-chess/kibitz/internal/config"
	"github.com/kibitz-chess/kibitz/internal/engine"
	"github.com/kibitz-chess/kibitz/internal/model"
)

// evalFlags holds all flags for the eval command.
type evalFlags struct {
	depth   int
	engine  string
	timeout time.Duration
	workers int
}

// evalFlagVals is the package-level instance bound to cobra flags.
var evalFlagVals evalFlags

var evalCmd = &cobra.Command{
	Use:   "eval [fen]...",
	Short: "Evaluate positions locally and print JSON results",
	Long: `Evaluate one or more FEN positions against a local engine, without
starting the server. Results are printed to stdout as a JSON array in the
same order as the arguments; logs go to stderr.`,
	Example: `  # Evaluate the starting position at the default depth
  kibitz eval "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

  # Deeper search with an explicit engine binary
  kibitz eval --engine /usr/local/bin/stockfish --depth 22 "<fen>"

  # Several positions across four engine processes
  kibitz eval --workers 4 "<fen1>" "<fen2>" "<fen3>" "<fen4>"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

func init() {
	f := &evalFlagVals

	evalCmd.Flags().IntVarP(&f.depth, "depth", "d", 0, "Search depth (0 = configured default)")
	evalCmd.Flags().StringVar(&f.engine, "engine", "", "Engine binary (default: from config)")
	evalCmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Per-position evaluation timeout")
	evalCmd.Flags().IntVar(&f.workers, "workers", 1, "Concurrent engine processes")

	rootCmd.AddCommand(evalCmd)
}

func runEval(_ *cobra.Command, args []string) error {
	f := &evalFlagVals

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if f.engine != "" {
		cfg.EnginePath = f.engine
	}
	if f.depth > 0 {
		cfg.DefaultDepth = f.depth
	}
	if f.timeout > 0 {
		cfg.EvalTimeout = f.timeout
	}

	// Results go to stdout, so keep logging quiet and on stderr.
	logger := config.NewLogger(os.Stderr, slog.LevelWarn)

	engineCfg := engine.ProcessConfig{
		Path:             cfg.EnginePath,
		Threads:          cfg.EngineThreads,
		HashMB:           cfg.EngineHashMB,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	pool := engine.NewPool(f.workers, engine.NewSpawnFunc(engineCfg, logger), logger)
	defer pool.ShutdownAll()

	disp := engine.NewDispatcher(pool, engine.DispatcherConfig{
		DefaultDepth: cfg.DefaultDepth,
		EvalTimeout:  cfg.EvalTimeout,
	}, logger)

	reqs := make([]model.EvaluationRequest, len(args))
	for i, fen := range args {
		reqs[i] = model.EvaluationRequest{FEN: fen}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := disp.EvaluateBatch(ctx, reqs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kibitz-chess/kibitz/internal/analysis"
	"github.com/kibitz-chess/kibitz/internal/api"
	"github.com/kibitz-chess/kibitz/internal/config"
	"github.com/kibitz-chess/kibitz/internal/engine"
	"github.com/kibitz-chess/kibitz/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("kibitz: starting",
		"listen_addr", cfg.ListenAddr,
		"engine_path", cfg.EnginePath,
		"pool_size", cfg.PoolSize,
		"db_path", cfg.DBPath,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	engineCfg := engine.ProcessConfig{
		Path:             cfg.EnginePath,
		Threads:          cfg.EngineThreads,
		HashMB:           cfg.EngineHashMB,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	pool := engine.NewPool(cfg.PoolSize, engine.NewSpawnFunc(engineCfg, logger), logger)
	defer pool.ShutdownAll()

	disp := engine.NewDispatcher(pool, engine.DispatcherConfig{
		DefaultDepth: cfg.DefaultDepth,
		EvalTimeout:  cfg.EvalTimeout,
	}, logger)

	runner := analysis.NewRunner(db, disp, logger)

	srv := api.NewServer(cfg.ListenAddr, db, pool, disp, runner, engineCfg, logger)

	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	// Let in-flight analyses finish before the pool goes down.
	runner.Wait()
	return nil
}

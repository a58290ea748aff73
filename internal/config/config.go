package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr       = ":8080"
	defaultEnginePath       = "stockfish"
	defaultPoolSize         = 4
	defaultDepth            = 15
	defaultEvalTimeout      = 30 * time.Second
	defaultHandshakeTimeout = 5 * time.Second
	defaultEngineThreads    = 1
	defaultEngineHashMB     = 16
	defaultDBPath           = "kibitz.db"

	envListenAddr       = "KIBITZ_LISTEN_ADDR"
	envEnginePath       = "KIBITZ_ENGINE_PATH"
	envPoolSize         = "KIBITZ_POOL_SIZE"
	envDefaultDepth     = "KIBITZ_DEFAULT_DEPTH"
	envEvalTimeout      = "KIBITZ_EVAL_TIMEOUT"
	envHandshakeTimeout = "KIBITZ_HANDSHAKE_TIMEOUT"
	envEngineThreads    = "KIBITZ_ENGINE_THREADS"
	envEngineHashMB     = "KIBITZ_ENGINE_HASH_MB"
	envDBPath           = "KIBITZ_DB_PATH"
	envLogLevel         = "KIBITZ_LOG_LEVEL"
)

// Config holds application configuration. Values are layered: defaults, then
// an optional YAML file, then environment variables.
type Config struct {
	ListenAddr       string
	EnginePath       string
	PoolSize         int
	DefaultDepth     int
	EvalTimeout      time.Duration
	HandshakeTimeout time.Duration
	EngineThreads    int
	EngineHashMB     int
	DBPath           string
	LogLevel         slog.Level
}

// fileConfig is the YAML file shape. Durations are Go duration strings
// ("30s", "1m30s"); absent fields keep their current value.
type fileConfig struct {
	ListenAddr       string `yaml:"listen_addr"`
	EnginePath       string `yaml:"engine_path"`
	PoolSize         int    `yaml:"pool_size"`
	DefaultDepth     int    `yaml:"default_depth"`
	EvalTimeout      string `yaml:"eval_timeout"`
	HandshakeTimeout string `yaml:"handshake_timeout"`
	EngineThreads    int    `yaml:"engine_threads"`
	EngineHashMB     int    `yaml:"engine_hash_mb"`
	DBPath           string `yaml:"db_path"`
	LogLevel         string `yaml:"log_level"`
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is non-empty), and environment variables, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddr:       defaultListenAddr,
		EnginePath:       defaultEnginePath,
		PoolSize:         defaultPoolSize,
		DefaultDepth:     defaultDepth,
		EvalTimeout:      defaultEvalTimeout,
		HandshakeTimeout: defaultHandshakeTimeout,
		EngineThreads:    defaultEngineThreads,
		EngineHashMB:     defaultEngineHashMB,
		DBPath:           defaultDBPath,
		LogLevel:         slog.LevelInfo,
	}

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.ListenAddr != "" {
		c.ListenAddr = fc.ListenAddr
	}
	if fc.EnginePath != "" {
		c.EnginePath = fc.EnginePath
	}
	if fc.PoolSize != 0 {
		c.PoolSize = fc.PoolSize
	}
	if fc.DefaultDepth != 0 {
		c.DefaultDepth = fc.DefaultDepth
	}
	if fc.EvalTimeout != "" {
		d, err := time.ParseDuration(fc.EvalTimeout)
		if err != nil {
			return fmt.Errorf("parse eval_timeout: %w", err)
		}
		c.EvalTimeout = d
	}
	if fc.HandshakeTimeout != "" {
		d, err := time.ParseDuration(fc.HandshakeTimeout)
		if err != nil {
			return fmt.Errorf("parse handshake_timeout: %w", err)
		}
		c.HandshakeTimeout = d
	}
	if fc.EngineThreads != 0 {
		c.EngineThreads = fc.EngineThreads
	}
	if fc.EngineHashMB != 0 {
		c.EngineHashMB = fc.EngineHashMB
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}

	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(envEnginePath); v != "" {
		c.EnginePath = v
	}
	if err := envInt(envPoolSize, &c.PoolSize); err != nil {
		return err
	}
	if err := envInt(envDefaultDepth, &c.DefaultDepth); err != nil {
		return err
	}
	if err := envDuration(envEvalTimeout, &c.EvalTimeout); err != nil {
		return err
	}
	if err := envDuration(envHandshakeTimeout, &c.HandshakeTimeout); err != nil {
		return err
	}
	if err := envInt(envEngineThreads, &c.EngineThreads); err != nil {
		return err
	}
	if err := envInt(envEngineHashMB, &c.EngineHashMB); err != nil {
		return err
	}
	if v := os.Getenv(envDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

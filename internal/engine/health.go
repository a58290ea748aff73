package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/kibitz-chess/kibitz/internal/model"
)

// CheckHealth verifies the configured engine outside the pool. It resolves
// the binary (PATH lookup for bare names, execute-bit check either way), then
// spawns a short-lived probe process that must complete the UCI handshake.
// The probe is terminated before returning.
//
// Status is "error" when the binary is missing or not executable, "degraded"
// when the binary exists but the probe failed, and "ok" otherwise.
func CheckHealth(ctx context.Context, cfg ProcessConfig, logger *slog.Logger) model.EngineHealth {
	h := model.EngineHealth{
		Status:     model.EngineError,
		EnginePath: cfg.Path,
		CheckedAt:  time.Now().UTC(),
	}

	resolved, err := exec.LookPath(cfg.Path)
	if err != nil {
		h.Error = fmt.Sprintf("engine binary: %v", err)
		return h
	}
	h.ResolvedPath = resolved
	h.Executable = true

	p, err := Spawn(cfg, logger)
	if err != nil {
		h.Status = model.EngineDegraded
		h.Error = err.Error()
		return h
	}
	if err := p.Initialize(ctx); err != nil {
		p.Terminate()
		h.Status = model.EngineDegraded
		h.Error = err.Error()
		return h
	}
	p.Terminate()

	h.ProbeOK = true
	h.Status = model.EngineOK
	return h
}

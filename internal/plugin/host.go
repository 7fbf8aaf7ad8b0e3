package plugin

import (
	"context"
	"log/slog"
)

// Host is the view of a build target handed to plugins in Apply.
type Host struct {
	// Context carries the session logging context. Hooks receive their own
	// context when fired.
	Context context.Context

	// Logger provides structured logging for plugin operations.
	Logger *slog.Logger

	// Target is the build target name.
	Target string

	// OutputDir is the directory the build writes into.
	OutputDir string

	// SessionID uniquely identifies the build session.
	SessionID string

	Hooks *Hooks
}

// NewHost creates a host with a fresh hook set.
func NewHost(ctx context.Context, logger *slog.Logger, target, outputDir, sessionID string) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		Context:   ctx,
		Logger:    logger.With(slog.String("target", target)),
		Target:    target,
		OutputDir: outputDir,
		SessionID: sessionID,
		Hooks:     NewHooks(),
	}
}

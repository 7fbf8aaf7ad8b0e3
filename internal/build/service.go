package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/outputkeeper/internal/plugin"
)

// Target is one build whose lifecycle is exposed to plugins.
type Target struct {
	Name string

	// OutputDir is where the build output ends up. The command writes into
	// StagingDir, which the runner sets and promotes into OutputDir after emit.
	OutputDir  string
	StagingDir string

	// Workdir is the working directory of the build command.
	Workdir string

	// Command is the build command and its arguments. An empty command
	// fires the hooks around a no-op build.
	Command []string

	Plugins []plugin.Plugin
}

// BuildDir returns the directory the build command must write into.
func (t Target) BuildDir() string {
	if t.StagingDir != "" {
		return t.StagingDir
	}
	return t.OutputDir
}

// Executor runs the build command of a target.
type Executor interface {
	Execute(ctx context.Context, t Target) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, t Target) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, t Target) error {
	return f(ctx, t)
}

// Result contains the outcome of one target.
type Result struct {
	Name   string
	Status BuildStatus

	// Err is the first error that made the target fail.
	Err error

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates the build completed successfully.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusFailed indicates the build encountered an error.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the build was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}

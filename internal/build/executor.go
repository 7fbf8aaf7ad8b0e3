package build

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
)

const (
	// OutputPlaceholder in command arguments is replaced by the build directory.
	OutputPlaceholder = "{output}"

	// EnvOutputDir carries the build directory to the command's environment.
	EnvOutputDir = "OUTPUTKEEPER_OUTPUT_DIR"
)

// CommandExecutor runs the target command as a child process.
type CommandExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewCommandExecutor returns an executor attached to the process stdio.
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Execute implements Executor.
func (e *CommandExecutor) Execute(ctx context.Context, t Target) error {
	if len(t.Command) == 0 {
		return nil
	}
	dir := t.BuildDir()
	args := make([]string, len(t.Command))
	for i, arg := range t.Command {
		args[i] = strings.ReplaceAll(arg, OutputPlaceholder, dir)
	}
	// #nosec G204 -- the command comes from the user's own configuration
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = t.Workdir
	cmd.Env = append(os.Environ(), EnvOutputDir+"="+dir)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return cmd.Run()
}

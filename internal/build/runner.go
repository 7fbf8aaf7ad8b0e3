package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"

	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/logfields"
	"git.home.luguber.info/inful/outputkeeper/internal/metrics"
	"git.home.luguber.info/inful/outputkeeper/internal/observability"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin"
)

// Runner executes targets.
type Runner struct {
	executor  Executor
	recorder  metrics.Recorder
	logger    *slog.Logger
	sessionID string
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the command executor (for testing).
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.executor = e }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(m metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = m }
}

// WithLogger sets the logger handed to plugins.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithSessionID tags hosts and log lines with the session.
func WithSessionID(id string) Option {
	return func(r *Runner) { r.sessionID = id }
}

// NewRunner creates a Runner that executes commands as child processes.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		executor: NewCommandExecutor(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepared is a target whose plugins have been applied.
type Prepared struct {
	Target Target
	Host   *plugin.Host
	err    error
}

// Prepare applies the target's plugins to a fresh host.
func (r *Runner) Prepare(ctx context.Context, t Target) *Prepared {
	ctx = observability.WithTarget(observability.WithSessionID(ctx, r.sessionID), t.Name)
	host := plugin.NewHost(ctx, r.logger, t.Name, t.OutputDir, r.sessionID)

	plugins := plugin.NewRegistry()
	for _, p := range t.Plugins {
		if err := plugins.Register(p); err != nil {
			return &Prepared{Target: t, Host: host, err: fmt.Errorf("%w: %w", ErrPluginApply, err)}
		}
	}
	if err := plugins.ApplyAll(host); err != nil {
		return &Prepared{Target: t, Host: host, err: fmt.Errorf("%w: %w", ErrPluginApply, err)}
	}
	return &Prepared{Target: t, Host: host}
}

// Run prepares and executes a single target.
func (r *Runner) Run(ctx context.Context, t Target) *Result {
	return r.Execute(ctx, r.Prepare(ctx, t))
}

// RunAll prepares every target, then executes them concurrently. Results
// are returned in the order of targets.
func (r *Runner) RunAll(ctx context.Context, targets []Target) []*Result {
	prepared := make([]*Prepared, len(targets))
	for i, t := range targets {
		prepared[i] = r.Prepare(ctx, t)
	}

	results := make([]*Result, len(targets))
	var wg conc.WaitGroup
	for i, p := range prepared {
		wg.Go(func() {
			results[i] = r.Execute(ctx, p)
		})
	}
	wg.Wait()
	return results
}

// Execute fires run, runs the build command, fires emit when the build
// succeeded and always fires done.
func (r *Runner) Execute(ctx context.Context, p *Prepared) *Result {
	ctx = observability.WithTarget(observability.WithSessionID(ctx, r.sessionID), p.Target.Name)
	res := &Result{Name: p.Target.Name, StartTime: time.Now()}
	hooks := p.Host.Hooks

	err := p.err
	if err == nil {
		err = r.build(ctx, p.Target, hooks)
	}
	if doneErr := hooks.Done.Call(context.WithoutCancel(ctx)); doneErr != nil {
		observability.WarnContext(ctx, "Done hook failed", logfields.Error(doneErr))
	}

	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	res.Err = err
	switch {
	case err == nil:
		res.Status = BuildStatusSuccess
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		res.Status = BuildStatusCancelled
	default:
		res.Status = BuildStatusFailed
	}
	r.recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(res.Status))

	attrs := []slog.Attr{
		slog.String("status", string(res.Status)),
		logfields.DurationMS(float64(res.Duration.Milliseconds())),
	}
	if err != nil {
		observability.ErrorContext(ctx, "Target finished", append(attrs, logfields.Error(err))...)
	} else {
		observability.InfoContext(ctx, "Target finished", attrs...)
	}
	return res
}

func (r *Runner) build(ctx context.Context, t Target, hooks *plugin.Hooks) error {
	if err := hooks.Run.Call(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrHook, err)
	}

	var stage *staging
	if t.OutputDir != "" {
		var err error
		if stage, err = beginStaging(t.OutputDir); err != nil {
			return errors.FileSystemError("failed to create staging directory").
				WithCause(err).
				WithContext("output", t.OutputDir).
				Build()
		}
		defer stage.abort(context.WithoutCancel(ctx))
		t.StagingDir = stage.dir
	}

	observability.InfoContext(ctx, "Building target", logfields.OutputPath(t.OutputDir), logfields.Path(t.BuildDir()))
	if err := r.executor.Execute(ctx, t); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.BuildError("build command failed").
			WithCause(fmt.Errorf("%w: %w", ErrCommand, err)).
			WithContext("target", t.Name).
			Build()
	}
	// Emit sees the previous output only; the new files are promoted after.
	if err := hooks.Emit.Call(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrHook, err)
	}
	if stage == nil {
		return nil
	}
	if err := stage.promote(ctx); err != nil {
		return errors.FileSystemError("failed to promote build output").
			WithCause(fmt.Errorf("%w: %w", ErrPromote, err)).
			WithContext("output", t.OutputDir).
			Build()
	}
	return nil
}

// Package cleaner backs up and removes the files of one output directory.
//
// A Cleaner is bound to an output path and a glob set through the session
// registry. Cleaners bound to the same pair share one record, so each
// operation runs at most once per session and later calls return the
// memoized outcome. Removal never starts before a claimed backup finished.
package cleaner

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/outputkeeper/internal/archive"
	"git.home.luguber.info/inful/outputkeeper/internal/fileops"
	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/logfields"
	"git.home.luguber.info/inful/outputkeeper/internal/metrics"
	"git.home.luguber.info/inful/outputkeeper/internal/observability"
	"git.home.luguber.info/inful/outputkeeper/internal/registry"
)

// FileOps are the filesystem primitives a Cleaner drives.
type FileOps interface {
	CopyAll(ctx context.Context, destRoot, baseDir string, paths []string) (fileops.Result, error)
	RemoveAll(ctx context.Context, paths []string) fileops.Result
	PruneEmptyDirectories(ctx context.Context, root string) fileops.Result
}

// Cleaner drives backup and clean for one (output path, glob set) pair.
type Cleaner struct {
	reg *registry.Registry
	rec *registry.Record
	ops FileOps
	now func() time.Time
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithFileOps replaces the filesystem primitives.
func WithFileOps(ops FileOps) Option {
	return func(c *Cleaner) { c.ops = ops }
}

// WithClock replaces the clock used for backup directory names.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) { c.now = now }
}

// New registers a cleaner for outputPath and globs with reg. File resolution
// starts immediately in the background.
func New(ctx context.Context, reg *registry.Registry, outputPath string, globs []string, opts ...Option) *Cleaner {
	c := &Cleaner{
		reg: reg,
		ops: fileops.New(fileops.DefaultConcurrency),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rec = reg.Register(ctx, outputPath, globs)
	return c
}

// OutputPath returns the canonical output path.
func (c *Cleaner) OutputPath() string {
	return c.rec.Key()
}

// Files waits until the glob set has been resolved against the output path
// and returns the matched files.
func (c *Cleaner) Files(ctx context.Context) ([]string, error) {
	return c.rec.Files(ctx)
}

// Backup copies the matched files to a timestamped directory under destRoot
// and returns the outcome. Only the first call on a record does the work.
func (c *Cleaner) Backup(ctx context.Context, destRoot string) registry.Outcome {
	return <-c.BackupAsync(ctx, destRoot)
}

// BackupAsync claims the backup stage before returning, so a Clean issued
// afterwards waits for it, and delivers the outcome on the channel.
func (c *Cleaner) BackupAsync(ctx context.Context, destRoot string) <-chan registry.Outcome {
	return c.start(ctx, registry.TrackBackup, c.rec.Backup(), func(ctx context.Context) registry.Outcome {
		return c.backup(ctx, destRoot)
	})
}

// Clean removes the matched files and prunes empty directories left behind.
// Only the first call on a record does the work.
func (c *Cleaner) Clean(ctx context.Context) registry.Outcome {
	return <-c.start(ctx, registry.TrackClean, c.rec.Clean(), c.clean)
}

// Done signals that this cleaner's build target finished. The report of the
// glob set is flushed once every registered cleaner signalled done.
func (c *Cleaner) Done(ctx context.Context) {
	c.reg.MarkDone(ctx, c.rec.Group())
}

func (c *Cleaner) start(ctx context.Context, track registry.Track, stage *registry.Stage, run func(context.Context) registry.Outcome) <-chan registry.Outcome {
	ch := make(chan registry.Outcome, 1)
	if !stage.Claim() {
		go func() {
			o, err := stage.Wait(ctx)
			if err != nil {
				o.Err = err
			}
			ch <- o
		}()
		return ch
	}

	ctx = observability.WithStage(observability.WithOutputPath(ctx, c.rec.Key()), string(track))
	// The operation runs to completion even if the caller gives up waiting.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		started := time.Now()
		o := run(runCtx)
		// Report before releasing waiters so a done signal from any of them
		// cannot flush ahead of this outcome.
		c.finish(runCtx, track, o, time.Since(started))
		stage.Complete(o)
		ch <- o
	}()
	return ch
}

func (c *Cleaner) finish(ctx context.Context, track registry.Track, o registry.Outcome, d time.Duration) {
	stage := metrics.StageBackup
	if track == registry.TrackClean {
		stage = metrics.StageClean
	}
	rec := c.reg.Recorder()
	rec.ObserveStageDuration(stage, d)
	rec.IncStageResult(stage, resultLabel(o.State))
	rec.AddFiles(stage, o.Files)

	attrs := []slog.Attr{
		logfields.State(o.State.String()),
		logfields.Files(o.Files),
		logfields.DurationMS(float64(d.Milliseconds())),
	}
	if o.State == registry.StateFailed {
		attrs = append(attrs, logfields.Failures(len(o.Failures)), logfields.Error(o.Err))
		observability.WarnContext(ctx, "Stage failed", attrs...)
	} else {
		if o.Destination != "" {
			attrs = append(attrs, logfields.BackupPath(o.Destination))
		}
		observability.InfoContext(ctx, "Stage finished", attrs...)
	}
	c.reg.Report(c.rec, track, o)
}

func (c *Cleaner) backup(ctx context.Context, destRoot string) registry.Outcome {
	files, err := c.rec.Files(ctx)
	if err != nil {
		return registry.Outcome{State: registry.StateFailed, Err: err}
	}
	if len(files) == 0 {
		return registry.Outcome{State: registry.StateEmpty}
	}

	dest := archive.Destination(destRoot, c.now())
	res, err := c.ops.CopyAll(ctx, dest, c.rec.Key(), files)
	if err != nil {
		return registry.Outcome{State: registry.StateFailed, Err: err}
	}
	for _, f := range res.Failures {
		observability.WarnContext(ctx, "Backup skipped file", logfields.Path(f.Path), logfields.Error(f.Err))
	}
	return registry.Outcome{
		State:       registry.StateSuccess,
		Destination: dest,
		Files:       len(res.OK),
		Failures:    res.Failures,
	}
}

func (c *Cleaner) clean(ctx context.Context) registry.Outcome {
	files, err := c.rec.Files(ctx)
	if err != nil {
		return registry.Outcome{State: registry.StateFailed, Err: err}
	}
	if len(files) == 0 {
		return registry.Outcome{State: registry.StateEmpty}
	}

	if backup := c.rec.Backup(); backup.Claimed() {
		if _, err := backup.Wait(ctx); err != nil {
			return registry.Outcome{
				State: registry.StateFailed,
				Err:   errors.WrapError(err, errors.CategoryRuntime, "waiting for backup").Build(),
			}
		}
	}

	res := c.ops.RemoveAll(ctx, files)
	if !res.Success() {
		return registry.Outcome{
			State:    registry.StateFailed,
			Files:    len(res.OK),
			Failures: res.Failures,
			Err:      res.Err(),
		}
	}

	pruneStart := time.Now()
	pruned := c.ops.PruneEmptyDirectories(ctx, c.rec.Key())
	c.reg.Recorder().ObserveStageDuration(metrics.StagePrune, time.Since(pruneStart))
	c.reg.Recorder().AddFiles(metrics.StagePrune, len(pruned.OK))
	for _, f := range pruned.Failures {
		observability.WarnContext(ctx, "Could not prune directory", logfields.Path(f.Path), logfields.Error(f.Err))
	}

	return registry.Outcome{State: registry.StateSuccess, Files: len(res.OK)}
}

func resultLabel(s registry.State) metrics.ResultLabel {
	switch s {
	case registry.StateEmpty:
		return metrics.ResultEmpty
	case registry.StateFailed:
		return metrics.ResultFailed
	default:
		return metrics.ResultSuccess
	}
}

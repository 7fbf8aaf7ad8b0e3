package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/outputkeeper/internal/fileops"
	"git.home.luguber.info/inful/outputkeeper/internal/logfields"
	"git.home.luguber.info/inful/outputkeeper/internal/metrics"
	"git.home.luguber.info/inful/outputkeeper/internal/observability"
	"git.home.luguber.info/inful/outputkeeper/internal/registry"
	"git.home.luguber.info/inful/outputkeeper/internal/report"
)

// Global carries process-wide state into subcommands.
type Global struct {
	Context   context.Context
	Logger    *slog.Logger
	SessionID string
	// Stdout receives reports and listings.
	Stdout io.Writer
}

func (g *Global) ctx() context.Context {
	ctx := g.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if g.SessionID != "" {
		ctx = observability.WithSessionID(ctx, g.SessionID)
	}
	return ctx
}

func (g *Global) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config      string           `short:"c" help:"Configuration file path" default:"outputkeeper.yaml"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`
	MetricsFile string           `name:"metrics-file" help:"Write Prometheus metrics to this textfile when the command finishes"`

	Build  BuildCmd  `cmd:"" help:"Run the configured build targets with output backup and cleanup"`
	Backup BackupCmd `cmd:"" help:"Back up the files of an output directory once"`
	Clean  CleanCmd  `cmd:"" help:"Back up and remove the files of an output directory once"`
	List   ListCmd   `cmd:"" help:"List the backups under a backup root"`
	Init   InitCmd   `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// session bundles the registry and metrics of one command invocation.
type session struct {
	registry    *registry.Registry
	recorder    *metrics.PrometheusRecorder
	metricsFile string
	concurrency int
}

func newSession(g *Global, metricsFile string, concurrency int) *session {
	s := &session{metricsFile: metricsFile, concurrency: concurrency}
	opts := []registry.Option{registry.WithSink(report.New(g.stdout()))}
	if metricsFile != "" {
		s.recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
		opts = append(opts, registry.WithRecorder(s.recorder))
	}
	s.registry = registry.New(opts...)
	return s
}

func (s *session) fileOps() *fileops.Ops {
	if s.concurrency <= 0 {
		return fileops.New(fileops.DefaultConcurrency)
	}
	return fileops.New(s.concurrency)
}

// close writes the metrics textfile when one was requested. Failures are
// logged; metrics never fail a command.
func (s *session) close(ctx context.Context) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.WriteTextfile(s.metricsFile); err != nil {
		observability.WarnContext(ctx, "Failed to write metrics textfile", logfields.Path(s.metricsFile), logfields.Error(err))
		return
	}
	observability.DebugContext(ctx, "Wrote metrics textfile", logfields.Path(s.metricsFile))
}

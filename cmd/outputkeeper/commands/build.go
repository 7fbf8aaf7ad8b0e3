package commands

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"git.home.luguber.info/inful/outputkeeper/internal/build"
	"git.home.luguber.info/inful/outputkeeper/internal/cleaner"
	"git.home.luguber.info/inful/outputkeeper/internal/config"
	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin/backupoutput"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Targets []string `arg:"" optional:"" help:"Targets to build (default: all)"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if !root.Verbose {
		slog.SetDefault(cfg.Logging.NewLogger(os.Stderr))
	}

	targets, err := selectTargets(cfg, b.Targets)
	if err != nil {
		return err
	}

	metricsFile := root.MetricsFile
	if metricsFile == "" {
		metricsFile = cfg.Metrics.Textfile
	}
	ctx := g.ctx()
	sess := newSession(g, metricsFile, cfg.Build.FileConcurrency)
	defer sess.close(ctx)

	runnerOpts := []build.Option{build.WithSessionID(g.SessionID), build.WithLogger(slog.Default())}
	if sess.recorder != nil {
		runnerOpts = append(runnerOpts, build.WithRecorder(sess.recorder))
	}
	runner := build.NewRunner(runnerOpts...)

	buildTargets := make([]build.Target, 0, len(targets))
	for _, t := range targets {
		bo := backupoutput.New(sess.registry, *t.BackupOutput, cleaner.WithFileOps(sess.fileOps()))
		buildTargets = append(buildTargets, build.Target{
			Name:      t.Name,
			OutputDir: t.Output,
			Workdir:   t.Workdir,
			Command:   t.Command,
			Plugins:   []plugin.Plugin{bo},
		})
	}

	var failed []string
	for _, res := range runner.RunAll(ctx, buildTargets) {
		if !res.Status.IsSuccess() {
			failed = append(failed, res.Name)
		}
	}
	if len(failed) > 0 {
		return errors.BuildError(fmt.Sprintf("%d target(s) did not succeed", len(failed))).
			WithContext("targets", failed).
			Build()
	}
	return nil
}

func selectTargets(cfg *config.Config, names []string) ([]config.Target, error) {
	if len(names) == 0 {
		return cfg.Targets, nil
	}
	out := make([]config.Target, 0, len(names))
	for _, name := range names {
		t, ok := cfg.Target(name)
		if !ok {
			return nil, errors.NewError(errors.CategoryNotFound, fmt.Sprintf("unknown target %q", name)).
				WithContext("known", targetNames(cfg)).
				Build()
		}
		if slices.ContainsFunc(out, func(o config.Target) bool { return o.Name == name }) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func targetNames(cfg *config.Config) []string {
	names := make([]string, len(cfg.Targets))
	for i, t := range cfg.Targets {
		names[i] = t.Name
	}
	return names
}

package commands

import (
	"git.home.luguber.info/inful/outputkeeper/internal/cleaner"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Output     string   `arg:"" help:"Output directory to clean"`
	Files      []string `short:"f" help:"Glob patterns relative to the output directory" default:"**/*.*"`
	BackupRoot string   `name:"backup-root" short:"b" help:"Directory that receives timestamped backups" default:"_output-backup"`
	Backup     bool     `help:"Back up the files before removing them" default:"true" negatable:""`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	ctx := g.ctx()
	sess := newSession(g, root.MetricsFile, 0)
	defer sess.close(ctx)

	cl := cleaner.New(ctx, sess.registry, c.Output, c.Files, cleaner.WithFileOps(sess.fileOps()))
	if c.Backup {
		cl.BackupAsync(ctx, c.BackupRoot)
	}
	o := cl.Clean(ctx)
	cl.Done(ctx)
	return outcomeError("clean", o)
}

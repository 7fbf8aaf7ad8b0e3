package commands

import (
	"git.home.luguber.info/inful/outputkeeper/internal/cleaner"
	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin/backupoutput"
	"git.home.luguber.info/inful/outputkeeper/internal/registry"
)

// BackupCmd implements the 'backup' command.
type BackupCmd struct {
	Output     string   `arg:"" help:"Output directory to back up"`
	Files      []string `short:"f" help:"Glob patterns relative to the output directory" default:"**/*.*"`
	BackupRoot string   `name:"backup-root" short:"b" help:"Directory that receives timestamped backups" default:"_output-backup"`
}

func (b *BackupCmd) Run(g *Global, root *CLI) error {
	ctx := g.ctx()
	sess := newSession(g, root.MetricsFile, 0)
	defer sess.close(ctx)

	c := cleaner.New(ctx, sess.registry, b.Output, b.settings().Files, cleaner.WithFileOps(sess.fileOps()))
	o := c.Backup(ctx, b.BackupRoot)
	c.Done(ctx)
	return outcomeError("backup", o)
}

func (b *BackupCmd) settings() backupoutput.Settings {
	return backupoutput.Options{Files: b.Files, BackupRoot: b.BackupRoot}.Normalize()
}

// outcomeError turns a failed outcome into a command error. Empty and
// successful outcomes are not errors.
func outcomeError(op string, o registry.Outcome) error {
	if o.State != registry.StateFailed {
		return nil
	}
	return errors.FileSystemError(op + " failed").WithCause(o.Err).Build()
}

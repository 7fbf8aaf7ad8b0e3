package commands

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"git.home.luguber.info/inful/outputkeeper/internal/archive"
)

// ListCmd implements the 'list' command.
type ListCmd struct {
	BackupRoot string `arg:"" optional:"" help:"Backup root to inspect" default:"_output-backup"`
}

func (l *ListCmd) Run(g *Global, _ *CLI) error {
	backups, err := archive.List(l.BackupRoot)
	if err != nil {
		return err
	}
	out := g.stdout()
	if len(backups) == 0 {
		_, _ = fmt.Fprintf(out, "No backups under %s\n", l.BackupRoot)
		return nil
	}

	r := lipgloss.NewRenderer(out)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("3"))).
		Headers("BACKUP", "FILES", "PATH")
	for _, b := range backups {
		t.Row(b.Name, strconv.Itoa(b.Files), b.Path)
	}
	_, _ = fmt.Fprintln(out, t.Render())
	return nil
}

package backupoutput

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFiles selects every file with an extension.
	DefaultFiles = "**/*.*"
	// DefaultBackupRoot is relative to the working directory.
	DefaultBackupRoot = "_output-backup"
)

// Patterns accepts either a single glob or a list of globs.
type Patterns []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Patterns) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*p = Patterns{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*p = list
		return nil
	default:
		return fmt.Errorf("files: expected a glob or a list of globs (line %d)", value.Line)
	}
}

// Options is the user-facing configuration of the plugin. Unset fields take
// their defaults in Normalize.
type Options struct {
	Clean      *bool    `yaml:"clean,omitempty"`
	Backup     *bool    `yaml:"backup,omitempty"`
	Files      Patterns `yaml:"files,omitempty"`
	BackupRoot string   `yaml:"backup_root,omitempty"`
}

// Settings are Options with every default applied.
type Settings struct {
	Clean      bool
	Backup     bool
	Files      []string
	BackupRoot string
}

// Normalize applies defaults.
func (o Options) Normalize() Settings {
	s := Settings{
		Clean:      true,
		Backup:     true,
		Files:      []string{DefaultFiles},
		BackupRoot: DefaultBackupRoot,
	}
	if o.Clean != nil {
		s.Clean = *o.Clean
	}
	if o.Backup != nil {
		s.Backup = *o.Backup
	}
	if len(o.Files) > 0 {
		s.Files = append([]string(nil), o.Files...)
	}
	if o.BackupRoot != "" {
		s.BackupRoot = o.BackupRoot
	}
	return s
}

// Enabled reports whether the plugin has anything to do.
func (s Settings) Enabled() bool {
	return s.Clean || s.Backup
}

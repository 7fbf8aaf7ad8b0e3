package config

import (
	"fmt"

	"git.home.luguber.info/inful/outputkeeper/internal/foundation"
)

// ValidateConfig checks a defaulted configuration. All problems are reported
// together as one validation error.
func ValidateConfig(cfg *Config) error {
	result := foundation.SliceNotEmpty[Target]("targets")(cfg.Targets)
	result = result.Combine(foundation.OneOf("logging.format", LogFormatText, LogFormatJSON)(cfg.Logging.Format))

	seen := make(map[string]struct{}, len(cfg.Targets))
	for i, t := range cfg.Targets {
		prefix := fmt.Sprintf("targets[%d]", i)
		result = result.Combine(foundation.StringNotEmpty(prefix + ".name")(t.Name))
		result = result.Combine(foundation.StringNotEmpty(prefix + ".output")(t.Output))
		if _, dup := seen[t.Name]; dup && t.Name != "" {
			result = result.Combine(foundation.Fail(prefix+".name", "unique", "duplicate target name %q", t.Name))
		}
		seen[t.Name] = struct{}{}
		if t.BackupOutput != nil {
			for j, p := range t.BackupOutput.Files {
				result = result.Combine(foundation.StringNotEmpty(fmt.Sprintf("%s.backup_output.files[%d]", prefix, j))(p))
			}
		}
	}
	return result.ToError()
}

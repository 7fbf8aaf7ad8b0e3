package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin/backupoutput"
)

// Example returns the configuration written by Init.
func Example() *Config {
	clean, backup := true, true
	return &Config{
		Version: CurrentVersion,
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Targets: []Target{
			{
				Name:    "web",
				Output:  "./dist",
				Workdir: ".",
				Command: []string{"npm", "run", "build", "--", "--outDir", "{output}"},
				BackupOutput: &backupoutput.Options{
					Clean:      &clean,
					Backup:     &backup,
					Files:      backupoutput.Patterns{backupoutput.DefaultFiles},
					BackupRoot: backupoutput.DefaultBackupRoot,
				},
			},
		},
	}
}

// Init writes an example configuration file. An existing file is kept unless
// force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}
	data, err := yaml.Marshal(Example())
	if err != nil {
		return errors.InternalError("failed to marshal example config").WithCause(err).Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.FileSystemError("failed to write config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	return nil
}

// Package config loads the YAML configuration describing build targets and
// how their output directories are backed up and cleaned.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin/backupoutput"
)

// CurrentVersion is the only configuration version understood by Load.
const CurrentVersion = "1"

// Config is the outputkeeper configuration file.
type Config struct {
	Version string        `yaml:"version"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	Build   BuildConfig   `yaml:"build,omitempty"`
	Targets []Target      `yaml:"targets"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// MetricsConfig enables the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// BuildConfig holds settings shared by every target.
type BuildConfig struct {
	// FileConcurrency bounds parallel copy and remove operations.
	FileConcurrency int `yaml:"file_concurrency,omitempty"`
}

// Target is one build whose output directory is managed.
type Target struct {
	Name    string   `yaml:"name"`
	Output  string   `yaml:"output"`
	Workdir string   `yaml:"workdir,omitempty"`
	// Command writes its output into the directory substituted for {output}
	// or named by $OUTPUTKEEPER_OUTPUT_DIR.
	Command []string `yaml:"command,omitempty"`

	BackupOutput *backupoutput.Options `yaml:"backup_output,omitempty"`
}

// Load reads, expands, defaults and validates a configuration file.
// Variables from .env/.env.local are loaded first without overriding the
// process environment.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError(errors.CategoryNotFound, "configuration file not found").
				WithContext("path", configPath).
				UserAction().
				Build()
		}
		return nil, errors.ConfigError("failed to read config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse is Load for in-memory content. ${VAR} references are expanded from
// the environment before decoding.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.ConfigError("failed to parse config").WithCause(err).Build()
	}
	if cfg.Version != CurrentVersion {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported configuration version %q (expected %q)", cfg.Version, CurrentVersion)).Build()
	}
	if err := NewDefaultApplier().ApplyDefaults(&cfg); err != nil {
		return nil, errors.ConfigError("failed to apply defaults").WithCause(err).Build()
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Target returns the target with the given name.
func (c *Config) Target(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

package config

import (
	"os"

	"git.home.luguber.info/inful/outputkeeper/internal/fileops"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin/backupoutput"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// LoggingDefaultApplier fills the logging section. OUTPUTKEEPER_LOG_LEVEL
// takes precedence over the file.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if env := os.Getenv("OUTPUTKEEPER_LOG_LEVEL"); env != "" {
		cfg.Logging.Level = LogLevel(env)
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	// Unknown formats are left as written so validation can name them.
	if f, err := logFormatNormalizer.NormalizeWithError(string(cfg.Logging.Format)); err == nil {
		cfg.Logging.Format = f
	}
	return nil
}

// BuildDefaultApplier fills shared build settings.
type BuildDefaultApplier struct{}

func (BuildDefaultApplier) Domain() string { return "build" }

func (BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.FileConcurrency <= 0 {
		cfg.Build.FileConcurrency = fileops.DefaultConcurrency
	}
	return nil
}

// TargetDefaultApplier fills per-target defaults. Targets without a
// backup_output section get the plugin with its defaults.
type TargetDefaultApplier struct{}

func (TargetDefaultApplier) Domain() string { return "targets" }

func (TargetDefaultApplier) ApplyDefaults(cfg *Config) error {
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		if t.Workdir == "" {
			t.Workdir = "."
		}
		if t.BackupOutput == nil {
			t.BackupOutput = &backupoutput.Options{}
		}
	}
	return nil
}

// CompositeDefaultApplier runs every domain applier in order.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier creates a composite default applier with all domain appliers.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			LoggingDefaultApplier{},
			BuildDefaultApplier{},
			TargetDefaultApplier{},
		},
	}
}

// ApplyDefaults implements DefaultApplier.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, a := range c.appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// Domain implements DefaultApplier.
func (c *CompositeDefaultApplier) Domain() string { return "all" }

// GetApplierByDomain returns a specific domain applier (useful for testing).
func (c *CompositeDefaultApplier) GetApplierByDomain(domain string) DefaultApplier {
	for _, a := range c.appliers {
		if a.Domain() == domain {
			return a
		}
	}
	return nil
}

// Package backupoutput is the build plugin that backs up a target's output
// directory while the build runs and cleans it after a successful build.
package backupoutput

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/outputkeeper/internal/cleaner"
	"git.home.luguber.info/inful/outputkeeper/internal/logfields"
	"git.home.luguber.info/inful/outputkeeper/internal/observability"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin"
	"git.home.luguber.info/inful/outputkeeper/internal/registry"
)

const (
	// Name is the plugin name used in registries and logs.
	Name    = "backup-output"
	version = "v1.0.0"
)

// Plugin binds a cleaner to the hooks of each target it is applied to.
type Plugin struct {
	settings    Settings
	registry    *registry.Registry
	cleanerOpts []cleaner.Option
}

// New creates the plugin. All targets sharing reg coordinate through it.
func New(reg *registry.Registry, opts Options, cleanerOpts ...cleaner.Option) *Plugin {
	return &Plugin{
		settings:    opts.Normalize(),
		registry:    reg,
		cleanerOpts: cleanerOpts,
	}
}

// Settings returns the normalized options.
func (p *Plugin) Settings() Settings {
	return p.settings
}

// Metadata implements plugin.Plugin.
func (p *Plugin) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        Name,
		Version:     version,
		Type:        plugin.PluginTypeOutput,
		Description: "Backs up and cleans the files of the build output directory",
	}
}

// Apply implements plugin.Plugin. With both clean and backup disabled it does
// nothing, not even register with the registry.
func (p *Plugin) Apply(host *plugin.Host) error {
	if !p.settings.Enabled() {
		return nil
	}

	c := cleaner.New(host.Context, p.registry, host.OutputDir, p.settings.Files, p.cleanerOpts...)
	var (
		mu      sync.Mutex
		pending <-chan registry.Outcome
	)

	// The file list is the output of the previous build. Run returns only
	// once it is resolved, so the build never adds to it.
	host.Hooks.Run.Tap(Name, func(ctx context.Context) {
		if p.settings.Backup {
			ch := c.BackupAsync(ctx, p.settings.BackupRoot)
			mu.Lock()
			pending = ch
			mu.Unlock()
		}
		if _, err := c.Files(ctx); err != nil && ctx.Err() == nil {
			observability.DebugContext(ctx, "Output files unresolved", logfields.OutputPath(c.OutputPath()), logfields.Error(err))
		}
	})

	host.Hooks.Emit.TapPromise(Name, func(ctx context.Context) error {
		if p.settings.Clean {
			c.Clean(ctx)
			return nil
		}
		mu.Lock()
		ch := pending
		mu.Unlock()
		if ch == nil {
			return nil
		}
		select {
		case o := <-ch:
			observability.DebugContext(ctx, "Backup settled before emit",
				logfields.OutputPath(c.OutputPath()), logfields.State(o.State.String()), logfields.Files(o.Files))
		case <-ctx.Done():
		}
		return nil
	})

	host.Hooks.Done.Tap(Name, c.Done)
	return nil
}

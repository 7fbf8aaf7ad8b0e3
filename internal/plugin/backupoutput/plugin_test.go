package backupoutput

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/outputkeeper/internal/cleaner"
	"git.home.luguber.info/inful/outputkeeper/internal/plugin"
	"git.home.luguber.info/inful/outputkeeper/internal/registry"
	"git.home.luguber.info/inful/outputkeeper/internal/report"
)

func boolPtr(b bool) *bool { return &b }

func TestPatternsUnmarshal(t *testing.T) {
	var single struct {
		Files Patterns `yaml:"files"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`files: "**/*.js"`), &single))
	assert.Equal(t, Patterns{"**/*.js"}, single.Files)

	var list struct {
		Files Patterns `yaml:"files"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("files:\n  - \"*.js\"\n  - \"!vendor/**\"\n"), &list))
	assert.Equal(t, Patterns{"*.js", "!vendor/**"}, list.Files)

	var bad struct {
		Files Patterns `yaml:"files"`
	}
	require.Error(t, yaml.Unmarshal([]byte("files:\n  a: b\n"), &bad))
}

func TestNormalizeDefaults(t *testing.T) {
	s := Options{}.Normalize()
	assert.Equal(t, Settings{Clean: true, Backup: true, Files: []string{DefaultFiles}, BackupRoot: DefaultBackupRoot}, s)

	s = Options{Clean: boolPtr(false), Files: Patterns{"*.map"}, BackupRoot: "bk"}.Normalize()
	assert.False(t, s.Clean)
	assert.True(t, s.Backup)
	assert.Equal(t, []string{"*.map"}, s.Files)
	assert.Equal(t, "bk", s.BackupRoot)
}

func TestApplyDisabledRegistersNothing(t *testing.T) {
	reg := registry.New()
	p := New(reg, Options{Clean: boolPtr(false), Backup: boolPtr(false)})
	host := plugin.NewHost(context.Background(), nil, "web", t.TempDir(), "s1")

	require.NoError(t, p.Apply(host))
	assert.Empty(t, host.Hooks.Run.Taps())
	assert.Empty(t, host.Hooks.Emit.Taps())
	assert.Empty(t, host.Hooks.Done.Taps())
	assert.Empty(t, reg.Records())
}

func TestApplyTapsHooks(t *testing.T) {
	reg := registry.New()
	host := plugin.NewHost(context.Background(), nil, "web", t.TempDir(), "s1")
	require.NoError(t, New(reg, Options{}).Apply(host))

	assert.Equal(t, []string{Name}, host.Hooks.Run.Taps())
	assert.Equal(t, []string{Name}, host.Hooks.Emit.Taps())
	assert.Equal(t, []string{Name}, host.Hooks.Done.Taps())
	assert.Len(t, reg.Records(), 1)

	noBackup := plugin.NewHost(context.Background(), nil, "web", t.TempDir(), "s1")
	require.NoError(t, New(reg, Options{Backup: boolPtr(false)}).Apply(noBackup))
	assert.Equal(t, []string{Name}, noBackup.Hooks.Run.Taps())
	rec, ok := reg.Lookup(noBackup.OutputDir, []string{DefaultFiles})
	require.True(t, ok)
	require.NoError(t, noBackup.Hooks.Run.Call(context.Background()))
	assert.False(t, rec.Backup().Claimed())
}

// Files written after run are not part of the snapshot, so clean leaves them.
func TestRunSnapshotsFilesBeforeBuild(t *testing.T) {
	root, out := setupOutput(t)
	reg := registry.New()
	p := New(reg, Options{BackupRoot: filepath.Join(root, "bk")})
	host := plugin.NewHost(context.Background(), nil, "web", out, "s1")
	require.NoError(t, p.Apply(host))

	ctx := context.Background()
	require.NoError(t, host.Hooks.Run.Call(ctx))
	fresh := filepath.Join(out, "chunk-new.js")
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o600))
	require.NoError(t, host.Hooks.Emit.Call(ctx))
	require.NoError(t, host.Hooks.Done.Call(ctx))

	assert.FileExists(t, fresh)
	assert.NoFileExists(t, filepath.Join(out, "main.js"))
}

// Two glob sets on one directory report separately and each set's report
// carries only its own outcome.
func TestLifecycleGlobSetsShareDirectory(t *testing.T) {
	root, out := setupOutput(t)
	var buf bytes.Buffer
	reg := registry.New(registry.WithSink(report.New(&buf)))

	scripts := plugin.NewHost(context.Background(), nil, "scripts", out, "s1")
	images := plugin.NewHost(context.Background(), nil, "images", out, "s1")
	require.NoError(t, New(reg, Options{Clean: boolPtr(false), Files: Patterns{"**/*.js"}, BackupRoot: filepath.Join(root, "bk-js")}).Apply(scripts))
	require.NoError(t, New(reg, Options{Clean: boolPtr(false), Files: Patterns{"**/*.svg"}, BackupRoot: filepath.Join(root, "bk-svg")}).Apply(images))

	runLifecycle(t, scripts, true)
	first := buf.String()
	assert.Contains(t, first, "[**/*.js]")
	assert.Contains(t, first, "bk-js")
	assert.NotContains(t, first, "bk-svg")

	buf.Reset()
	runLifecycle(t, images, true)
	second := buf.String()
	assert.Contains(t, second, "[**/*.svg]")
	assert.Contains(t, second, "bk-svg")
	assert.NotContains(t, second, "bk-js")
}

func setupOutput(t *testing.T) (root, out string) {
	t.Helper()
	root = t.TempDir()
	out = filepath.Join(root, "dist")
	for name, content := range map[string]string{"main.js": "m", "assets/logo.svg": "l"} {
		p := filepath.Join(out, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root, out
}

func runLifecycle(t *testing.T, host *plugin.Host, emit bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, host.Hooks.Run.Call(ctx))
	if emit {
		require.NoError(t, host.Hooks.Emit.Call(ctx))
	}
	require.NoError(t, host.Hooks.Done.Call(ctx))
}

func TestLifecycleBackupAndClean(t *testing.T) {
	root, out := setupOutput(t)
	var buf bytes.Buffer
	reg := registry.New(registry.WithSink(report.New(&buf)))
	now := func() time.Time { return time.Date(2024, 5, 1, 12, 3, 0, 0, time.UTC) }

	p := New(reg, Options{BackupRoot: filepath.Join(root, "bk")}, cleaner.WithClock(now))
	host := plugin.NewHost(context.Background(), nil, "web", out, "s1")
	require.NoError(t, p.Apply(host))
	runLifecycle(t, host, true)

	dest := filepath.Join(root, "bk", "2024-05-01-12-03")
	assert.FileExists(t, filepath.Join(dest, "main.js"))
	assert.FileExists(t, filepath.Join(dest, "assets", "logo.svg"))
	assert.NoFileExists(t, filepath.Join(out, "main.js"))
	assert.NoDirExists(t, filepath.Join(out, "assets"))

	text := buf.String()
	assert.Contains(t, text, "Backup Output Report")
	assert.Contains(t, text, "Backup: ✔ Success ("+filepath.ToSlash(dest)+")")
	assert.Contains(t, text, "Clean: ✔ Success")
}

func TestLifecycleBackupOnly(t *testing.T) {
	root, out := setupOutput(t)
	var buf bytes.Buffer
	reg := registry.New(registry.WithSink(report.New(&buf)))

	p := New(reg, Options{Clean: boolPtr(false), BackupRoot: filepath.Join(root, "bk")})
	host := plugin.NewHost(context.Background(), nil, "web", out, "s1")
	require.NoError(t, p.Apply(host))
	runLifecycle(t, host, true)

	assert.FileExists(t, filepath.Join(out, "main.js"))
	assert.Contains(t, buf.String(), "Backup: ✔ Success")
	assert.NotContains(t, buf.String(), "Clean:")
}

func TestLifecycleFailedBuildKeepsOutput(t *testing.T) {
	root, out := setupOutput(t)
	var buf bytes.Buffer
	reg := registry.New(registry.WithSink(report.New(&buf)))

	p := New(reg, Options{BackupRoot: filepath.Join(root, "bk")})
	host := plugin.NewHost(context.Background(), nil, "web", out, "s1")
	require.NoError(t, p.Apply(host))

	ctx := context.Background()
	require.NoError(t, host.Hooks.Run.Call(ctx))
	rec, ok := reg.Lookup(out, []string{DefaultFiles})
	require.True(t, ok)
	_, err := rec.Backup().Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, host.Hooks.Done.Call(ctx))

	assert.FileExists(t, filepath.Join(out, "main.js"))
	assert.Contains(t, buf.String(), "Backup: ✔ Success")
}

// Two targets writing to the same directory share one backup and one report.
func TestLifecycleSharedOutputDirectory(t *testing.T) {
	root, out := setupOutput(t)
	var buf bytes.Buffer
	reg := registry.New(registry.WithSink(report.New(&buf)))
	p := New(reg, Options{BackupRoot: filepath.Join(root, "bk")})

	a := plugin.NewHost(context.Background(), nil, "a", out, "s1")
	b := plugin.NewHost(context.Background(), nil, "b", out+"/", "s1")
	require.NoError(t, p.Apply(a))
	require.NoError(t, p.Apply(b))

	runLifecycle(t, a, true)
	assert.Empty(t, buf.String())
	runLifecycle(t, b, true)

	entries, err := os.ReadDir(filepath.Join(root, "bk"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Backup Output Report")))
	assert.Equal(t, registry.Counter{Registered: 2, Completed: 2}, reg.Counter(registry.GroupKey([]string{DefaultFiles})))
}

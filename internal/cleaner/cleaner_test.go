package cleaner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/outputkeeper/internal/fileops"
	"git.home.luguber.info/inful/outputkeeper/internal/glob"
	"git.home.luguber.info/inful/outputkeeper/internal/metrics"
	"git.home.luguber.info/inful/outputkeeper/internal/registry"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 3, 0, 0, time.UTC) }

// fakeOps records calls and can hold CopyAll until released.
type fakeOps struct {
	mu          sync.Mutex
	events      []string
	copyGate    chan struct{}
	copyStarted chan struct{}
	copyErr     error
	copyFails   []fileops.Failure
	removeFails []fileops.Failure
}

func (f *fakeOps) log(ev string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeOps) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeOps) count(ev string) int {
	n := 0
	for _, e := range f.Events() {
		if e == ev {
			n++
		}
	}
	return n
}

func (f *fakeOps) CopyAll(_ context.Context, _, _ string, paths []string) (fileops.Result, error) {
	if f.copyStarted != nil {
		close(f.copyStarted)
	}
	if f.copyGate != nil {
		<-f.copyGate
	}
	f.log("copy")
	if f.copyErr != nil {
		return fileops.Result{}, f.copyErr
	}
	return fileops.Result{OK: paths[len(f.copyFails):], Failures: f.copyFails}, nil
}

func (f *fakeOps) RemoveAll(_ context.Context, paths []string) fileops.Result {
	f.log("remove")
	return fileops.Result{OK: paths[len(f.removeFails):], Failures: f.removeFails}
}

func (f *fakeOps) PruneEmptyDirectories(context.Context, string) fileops.Result {
	f.log("prune")
	return fileops.Result{}
}

type fakeSink struct {
	mu      sync.Mutex
	lines   []registry.Track
	flushed [][]string
}

func (s *fakeSink) Record(_, _ string, track registry.Track, _ registry.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, track)
}

func (s *fakeSink) Flush(_ string, keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed = append(s.flushed, keys)
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) IncStageResult(stage metrics.Stage, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[string(stage)+"/"+string(result)]++
}

func staticResolver(files []string, err error) glob.Resolver {
	return glob.ResolverFunc(func(context.Context, string, []string) ([]string, error) {
		return files, err
	})
}

func TestBackupIsMemoized(t *testing.T) {
	ops := &fakeOps{}
	reg := registry.New(registry.WithResolver(staticResolver([]string{"/out/a.js"}, nil)))
	ctx := context.Background()
	a := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops), WithClock(fixedNow))
	b := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops), WithClock(fixedNow))

	first := a.Backup(ctx, "/bk")
	second := a.Backup(ctx, "/bk")
	third := b.Backup(ctx, "/elsewhere")

	assert.Equal(t, registry.StateSuccess, first.State)
	assert.Equal(t, "/bk/2024-05-01-12-03", first.Destination)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, ops.count("copy"))
}

func TestCleanIsMemoized(t *testing.T) {
	ops := &fakeOps{}
	reg := registry.New(registry.WithResolver(staticResolver([]string{"/out/a.js"}, nil)))
	ctx := context.Background()
	c := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops))

	assert.Equal(t, registry.StateSuccess, c.Clean(ctx).State)
	assert.Equal(t, registry.StateSuccess, c.Clean(ctx).State)
	assert.Equal(t, []string{"remove", "prune"}, ops.Events())
}

func TestCleanWaitsForClaimedBackup(t *testing.T) {
	ops := &fakeOps{copyGate: make(chan struct{}), copyStarted: make(chan struct{})}
	reg := registry.New(registry.WithResolver(staticResolver([]string{"/out/a.js"}, nil)))
	ctx := context.Background()
	c := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops), WithClock(fixedNow))

	backup := c.BackupAsync(ctx, "/bk")
	<-ops.copyStarted

	cleaned := make(chan registry.Outcome, 1)
	go func() { cleaned <- c.Clean(ctx) }()

	select {
	case <-cleaned:
		t.Fatal("clean finished while backup was still copying")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, ops.Events())

	close(ops.copyGate)
	assert.Equal(t, registry.StateSuccess, (<-backup).State)
	assert.Equal(t, registry.StateSuccess, (<-cleaned).State)
	assert.Equal(t, []string{"copy", "remove", "prune"}, ops.Events())
}

func TestCleanWaitsEvenWhenBackupFails(t *testing.T) {
	ops := &fakeOps{copyErr: errors.New("no space")}
	reg := registry.New(registry.WithResolver(staticResolver([]string{"/out/a.js"}, nil)))
	ctx := context.Background()
	c := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops), WithClock(fixedNow))

	backup := c.BackupAsync(ctx, "/bk")
	clean := c.Clean(ctx)
	b := <-backup

	assert.Equal(t, registry.StateFailed, b.State)
	assert.Empty(t, b.Destination)
	assert.Equal(t, registry.StateSuccess, clean.State)
	assert.Equal(t, []string{"copy", "remove", "prune"}, ops.Events())
}

func TestEmptyFileSet(t *testing.T) {
	ops := &fakeOps{}
	reg := registry.New(registry.WithResolver(staticResolver(nil, nil)))
	ctx := context.Background()
	c := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops))

	b := c.Backup(ctx, "/bk")
	cl := c.Clean(ctx)
	assert.Equal(t, registry.StateEmpty, b.State)
	assert.Empty(t, b.Destination)
	assert.Equal(t, registry.StateEmpty, cl.State)
	assert.Empty(t, ops.Events())
}

func TestGlobFailureFailsBothTracks(t *testing.T) {
	ops := &fakeOps{}
	boom := errors.New("bad pattern")
	reg := registry.New(registry.WithResolver(staticResolver(nil, boom)))
	ctx := context.Background()
	c := New(ctx, reg, "/out", []string{"["}, WithFileOps(ops))

	b := c.Backup(ctx, "/bk")
	cl := c.Clean(ctx)
	assert.Equal(t, registry.StateFailed, b.State)
	assert.ErrorIs(t, b.Err, boom)
	assert.Equal(t, registry.StateFailed, cl.State)
	assert.ErrorIs(t, cl.Err, boom)
	assert.Empty(t, ops.Events())
}

func TestBackupPartialFailureStillSucceeds(t *testing.T) {
	ops := &fakeOps{copyFails: []fileops.Failure{{Path: "/out/a.js", Err: errors.New("denied")}}}
	reg := registry.New(registry.WithResolver(staticResolver([]string{"/out/a.js", "/out/b.js"}, nil)))
	ctx := context.Background()
	c := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops), WithClock(fixedNow))

	o := c.Backup(ctx, "/bk")
	assert.Equal(t, registry.StateSuccess, o.State)
	assert.Equal(t, 1, o.Files)
	assert.Len(t, o.Failures, 1)
}

func TestCleanRemoveFailureFailsAndSkipsPrune(t *testing.T) {
	ops := &fakeOps{removeFails: []fileops.Failure{{Path: "/out/a.js", Err: errors.New("busy")}}}
	reg := registry.New(registry.WithResolver(staticResolver([]string{"/out/a.js", "/out/b.js"}, nil)))
	ctx := context.Background()
	c := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops))

	o := c.Clean(ctx)
	assert.Equal(t, registry.StateFailed, o.State)
	require.Error(t, o.Err)
	assert.Contains(t, o.Err.Error(), "busy")
	assert.Equal(t, []string{"remove"}, ops.Events())
}

func TestDoneFlushesAfterAllCleanersAndReportsOutcomes(t *testing.T) {
	ops := &fakeOps{}
	sink := &fakeSink{}
	rec := &countingRecorder{}
	reg := registry.New(
		registry.WithResolver(staticResolver([]string{"/out/a.js"}, nil)),
		registry.WithSink(sink),
		registry.WithRecorder(rec),
	)
	ctx := context.Background()
	a := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops), WithClock(fixedNow))
	b := New(ctx, reg, "/out", []string{"**/*.*"}, WithFileOps(ops), WithClock(fixedNow))

	a.Backup(ctx, "/bk")
	b.Backup(ctx, "/bk")
	a.Clean(ctx)
	b.Clean(ctx)

	a.Done(ctx)
	assert.Empty(t, sink.flushed)
	b.Done(ctx)
	require.Len(t, sink.flushed, 1)
	assert.Equal(t, []string{"/out"}, sink.flushed[0])
	assert.Equal(t, []registry.Track{registry.TrackBackup, registry.TrackClean}, sink.lines)
	assert.Equal(t, 1, rec.results["backup/success"])
	assert.Equal(t, 1, rec.results["clean/success"])

	b.Done(ctx)
	assert.Len(t, sink.flushed, 1)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// Backup and clean of a real directory tree.
func TestBackupAndCleanDirectory(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "dist")
	bk := filepath.Join(root, "_output-backup")
	writeFile(t, filepath.Join(out, "a.js"), "a")
	writeFile(t, filepath.Join(out, "css", "b.css"), "b")
	writeFile(t, filepath.Join(out, "README"), "keep")

	ctx := context.Background()
	c := New(ctx, registry.New(), out, []string{"**/*.*"}, WithClock(fixedNow))

	backup := c.BackupAsync(ctx, bk)
	clean := c.Clean(ctx)
	b := <-backup

	require.Equal(t, registry.StateSuccess, b.State)
	require.Equal(t, registry.StateSuccess, clean.State)
	dest := filepath.Join(bk, "2024-05-01-12-03")
	assert.Equal(t, filepath.ToSlash(dest), b.Destination)

	data, err := os.ReadFile(filepath.Join(dest, "a.js"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	data, err = os.ReadFile(filepath.Join(dest, "css", "b.css"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	assert.NoFileExists(t, filepath.Join(out, "a.js"))
	assert.NoDirExists(t, filepath.Join(out, "css"))
	assert.FileExists(t, filepath.Join(out, "README"))
	assert.DirExists(t, out)
}

func TestBackupOnlyLeavesOutputUntouched(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "dist")
	writeFile(t, filepath.Join(out, "main.js"), "m")

	ctx := context.Background()
	c := New(ctx, registry.New(), out, []string{"**/*.*"}, WithClock(fixedNow))
	o := c.Backup(ctx, filepath.Join(root, "bk"))

	require.Equal(t, registry.StateSuccess, o.State)
	assert.FileExists(t, filepath.Join(out, "main.js"))
	assert.FileExists(t, filepath.Join(root, "bk", "2024-05-01-12-03", "main.js"))
}

func TestMissingOutputDirectoryIsEmpty(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	c := New(ctx, registry.New(), filepath.Join(root, "missing"), []string{"**/*.*"})

	b := c.Backup(ctx, filepath.Join(root, "bk"))
	cl := c.Clean(ctx)
	assert.Equal(t, registry.StateEmpty, b.State)
	assert.Equal(t, registry.StateEmpty, cl.State)
	assert.NoDirExists(t, filepath.Join(root, "bk"))
}

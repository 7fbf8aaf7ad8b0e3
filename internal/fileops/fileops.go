// Package fileops wraps the copy, remove and empty-directory pruning primitives
// used by the cleaner. Every operation visits all items and reports per-item
// outcomes instead of stopping at the first failure.
package fileops

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/pathutil"
)

// DefaultConcurrency bounds parallel copy/remove workers when none is configured.
const DefaultConcurrency = 8

// Failure records a single path that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// Result aggregates the outcome of a batch operation.
type Result struct {
	OK       []string
	Failures []Failure
}

// Success reports whether every item succeeded.
func (r Result) Success() bool {
	return len(r.Failures) == 0
}

// Err joins all per-item failures, or returns nil.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return stderrors.Join(errs...)
}

// Ops performs filesystem operations with bounded concurrency.
type Ops struct {
	concurrency int
}

// New creates Ops. A non-positive concurrency selects DefaultConcurrency.
func New(concurrency int) *Ops {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Ops{concurrency: concurrency}
}

type collector struct {
	mu  sync.Mutex
	res Result
}

func (c *collector) ok(path string) {
	c.mu.Lock()
	c.res.OK = append(c.res.OK, path)
	c.mu.Unlock()
}

func (c *collector) fail(path string, err error) {
	c.mu.Lock()
	c.res.Failures = append(c.res.Failures, Failure{Path: path, Err: err})
	c.mu.Unlock()
}

func (c *collector) sorted() Result {
	sort.Strings(c.res.OK)
	sort.Slice(c.res.Failures, func(i, j int) bool { return c.res.Failures[i].Path < c.res.Failures[j].Path })
	return c.res
}

func (o *Ops) each(ctx context.Context, paths []string, fn func(path string) error) Result {
	var c collector
	p := pool.New().WithMaxGoroutines(o.concurrency)
	for _, path := range paths {
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				c.fail(path, errors.WrapError(err, errors.CategoryRuntime, "operation canceled").
					WithContext("path", path).Build())
				return
			}
			if err := fn(path); err != nil {
				c.fail(path, err)
				return
			}
			c.ok(path)
		})
	}
	p.Wait()
	return c.sorted()
}

// RemoveAll deletes every path (recursively). A path that no longer exists
// counts as removed.
func (o *Ops) RemoveAll(ctx context.Context, paths []string) Result {
	return o.each(ctx, paths, func(path string) error {
		if err := os.RemoveAll(filepath.FromSlash(path)); err != nil {
			return errors.FileSystemError("remove failed").
				WithCause(err).
				WithContext("path", path).
				Build()
		}
		return nil
	})
}

// CopyAll copies each source to destRoot, preserving its location relative to
// baseDir (the working directory when baseDir is empty). The returned error is
// reserved for failures of the whole call; per-file problems land in Result.
func (o *Ops) CopyAll(ctx context.Context, destRoot, baseDir string, paths []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryRuntime, "copy canceled").Build()
	}
	root := filepath.FromSlash(destRoot)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return Result{}, errors.FileSystemError("create backup destination").
			WithCause(err).
			WithContext("path", destRoot).
			Build()
	}

	return o.each(ctx, paths, func(src string) error {
		rel := pathutil.RelativeTo(baseDir, src)
		if rel == "" {
			return errors.FileSystemError("source resolves to the base directory").
				WithContext("path", src).
				Build()
		}
		dst := filepath.Join(root, filepath.FromSlash(rel))
		if err := copyPath(filepath.FromSlash(src), dst); err != nil {
			return errors.FileSystemError("copy failed").
				WithCause(err).
				WithContext("path", src).
				WithContext("destination", filepath.ToSlash(dst)).
				Build()
		}
		return nil
	}), nil
}

// PruneEmptyDirectories removes empty directories below root. Candidates are
// directories whose name has no dot, visited deepest first so children go
// before their parents; each is removed only if it is empty at that moment.
// A missing root yields an empty result.
func (o *Ops) PruneEmptyDirectories(ctx context.Context, root string) Result {
	var res Result
	nativeRoot := filepath.FromSlash(root)
	if _, err := os.Stat(nativeRoot); err != nil {
		return res
	}

	candidates, err := emptyDirCandidates(nativeRoot)
	if err != nil {
		res.Failures = append(res.Failures, Failure{
			Path: root,
			Err:  errors.FileSystemError("enumerate directories").WithCause(err).WithContext("path", root).Build(),
		})
		return res
	}
	SortDeepestFirst(candidates)

	for _, dir := range candidates {
		if ctx.Err() != nil {
			break
		}
		entries, err := os.ReadDir(filepath.FromSlash(dir))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			res.Failures = append(res.Failures, Failure{Path: dir, Err: errors.FileSystemError("read directory").WithCause(err).WithContext("path", dir).Build()})
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(filepath.FromSlash(dir)); err != nil {
			res.Failures = append(res.Failures, Failure{
				Path: dir,
				Err:  errors.FileSystemError("failed to delete empty folder").WithCause(err).WithContext("path", dir).Build(),
			})
			continue
		}
		res.OK = append(res.OK, dir)
	}
	return res
}

func emptyDirCandidates(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if path == root || !d.IsDir() {
			return nil
		}
		if !strings.Contains(d.Name(), ".") {
			dirs = append(dirs, filepath.ToSlash(path))
		}
		return nil
	})
	return dirs, err
}

// SortDeepestFirst orders paths by descending segment count, breaking ties
// with reverse lexical order.
func SortDeepestFirst(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		di, dj := pathutil.Depth(paths[i]), pathutil.Depth(paths[j])
		if di != dj {
			return di > dj
		}
		return paths[i] > paths[j]
	})
}

func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(src, dst, info.Mode())
	}
	return copyFile(src, dst, info.Mode())
}

func copyDir(src, dst string, mode fs.FileMode) error {
	if err := os.MkdirAll(dst, mode.Perm()|0o700); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyPath(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	// #nosec G304 -- src comes from the resolved file list of the output directory
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, mode.Perm())
}

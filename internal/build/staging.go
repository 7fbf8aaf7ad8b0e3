package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/outputkeeper/internal/logfields"
	"git.home.luguber.info/inful/outputkeeper/internal/observability"
)

// staging is a sibling directory of a target's output that the build command
// writes into. Its files replace those in the output directory once emit has
// cleaned the previous build's files.
type staging struct {
	dir   string
	final string
}

// promoteMu serializes promotion into shared output directories.
var promoteMu sync.Mutex

// beginStaging creates <output>.staging-* next to the output directory.
func beginStaging(outputDir string) (*staging, error) {
	final, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, err
	}
	parent := filepath.Dir(final)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(parent, filepath.Base(final)+".staging-")
	if err != nil {
		return nil, err
	}
	return &staging{dir: dir, final: final}, nil
}

// promote moves every staged entry into the output directory, replacing
// entries of the same name, and removes the staging directory. Directories
// are merged so files the build did not produce survive. On failure the
// staging directory is kept, since it holds the only copy of the build.
func (s *staging) promote(ctx context.Context) error {
	promoteMu.Lock()
	defer promoteMu.Unlock()

	if err := s.merge(); err != nil {
		dir := s.dir
		s.dir = ""
		return fmt.Errorf("promote staging %s: %w", dir, err)
	}
	s.abort(ctx)
	return nil
}

func (s *staging) merge() error {
	if err := os.MkdirAll(s.final, 0o750); err != nil {
		return err
	}
	return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil || rel == "." {
			return err
		}
		dst := filepath.Join(s.final, rel)
		if d.IsDir() {
			info, statErr := os.Stat(dst)
			if statErr == nil && info.IsDir() {
				return nil
			}
			if statErr == nil {
				if err := os.Remove(dst); err != nil {
					return err
				}
			}
			// Moving the whole directory is enough when it is new.
			if err := os.Rename(path, dst); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		if info, statErr := os.Stat(dst); statErr == nil && info.IsDir() {
			if err := os.RemoveAll(dst); err != nil {
				return err
			}
		}
		return os.Rename(path, dst)
	})
}

// abort removes the staging directory and whatever the build left in it.
func (s *staging) abort(ctx context.Context) {
	if s == nil || s.dir == "" {
		return
	}
	dir := s.dir
	s.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		observability.WarnContext(ctx, "Failed to remove staging directory", logfields.Path(dir), logfields.Error(err))
	}
}

// Package archive names and lists the timestamped backup directories created
// under a backup root.
package archive

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/pathutil"
)

// Layout is the directory name format of a backup (UTC, minute resolution).
// Two backups in the same minute share a directory.
const Layout = "2006-01-02-15-04"

// Backup describes one timestamped backup directory.
type Backup struct {
	Name  string
	Path  string
	Time  time.Time
	Files int
}

// Destination returns the canonical backup directory for t under root.
func Destination(root string, t time.Time) string {
	return pathutil.Normalize(path.Join(pathutil.Normalize(root), t.UTC().Format(Layout)))
}

// List returns the backups under root, newest first. Entries whose name does
// not parse as Layout are skipped. A missing root yields no backups.
func List(root string) ([]Backup, error) {
	abs := pathutil.Normalize(root)
	entries, err := os.ReadDir(filepath.FromSlash(abs))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FileSystemError("failed to read backup root").
			WithContext("path", abs).
			WithCause(err).
			Build()
	}

	var backups []Backup
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, err := time.Parse(Layout, e.Name())
		if err != nil {
			continue
		}
		dir := path.Join(abs, e.Name())
		n, err := countFiles(dir)
		if err != nil {
			return nil, errors.FileSystemError("failed to scan backup").
				WithContext("path", dir).
				WithCause(err).
				Build()
		}
		backups = append(backups, Backup{Name: e.Name(), Path: dir, Time: ts, Files: n})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Time.After(backups[j].Time)
	})
	return backups, nil
}

func countFiles(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(filepath.FromSlash(dir), func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	return n, err
}

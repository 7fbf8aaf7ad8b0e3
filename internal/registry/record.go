package registry

import (
	"context"
	"slices"
)

// Record is the shared state of one (output path, glob set) pair.
type Record struct {
	key   string
	group string
	globs []string

	resolved chan struct{}
	files    []string
	filesErr error

	backup *Stage
	clean  *Stage
}

func newRecord(key, group string, globs []string) *Record {
	return &Record{
		key:      key,
		group:    group,
		globs:    slices.Clone(globs),
		resolved: make(chan struct{}),
		backup:   newStage(),
		clean:    newStage(),
	}
}

// Key returns the canonical output path.
func (r *Record) Key() string { return r.key }

// Group returns the completion group key derived from the globs.
func (r *Record) Group() string { return r.group }

// Globs returns a copy of the record's patterns.
func (r *Record) Globs() []string { return slices.Clone(r.globs) }

// Backup returns the backup track.
func (r *Record) Backup() *Stage { return r.backup }

// Clean returns the clean track.
func (r *Record) Clean() *Stage { return r.clean }

// Files waits for glob resolution and returns the matched paths or the
// resolution error. The slice must not be modified.
func (r *Record) Files(ctx context.Context) ([]string, error) {
	select {
	case <-r.resolved:
		return r.files, r.filesErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Record) resolve(files []string, err error) {
	r.files = files
	r.filesErr = err
	close(r.resolved)
}

// Package glob resolves the file-selection patterns of an output directory into
// a concrete list of files.
package glob

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/pathutil"
)

// Resolver turns patterns rooted at an output directory into matched file paths.
type Resolver interface {
	Resolve(ctx context.Context, root string, patterns []string) ([]string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, root string, patterns []string) ([]string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, root string, patterns []string) ([]string, error) {
	return f(ctx, root, patterns)
}

// Doublestar resolves patterns with `**` support. Patterns starting with "!"
// exclude matches of the remaining patterns. Only regular files are returned,
// as canonical slash paths, sorted and de-duplicated.
type Doublestar struct{}

// Resolve implements Resolver. A root that does not exist matches nothing.
func (Doublestar) Resolve(ctx context.Context, root string, patterns []string) ([]string, error) {
	absRoot := pathutil.Normalize(root)
	if info, err := os.Stat(filepath.FromSlash(absRoot)); err != nil || !info.IsDir() {
		return nil, nil
	}

	include, exclude, err := splitPatterns(patterns)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(filepath.FromSlash(absRoot))
	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range include {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapError(err, errors.CategoryRuntime, "glob resolution canceled").Build()
		}
		matches, err := match(fsys, absRoot, pattern)
		if err != nil {
			return nil, errors.GlobError("pattern matching failed").
				WithCause(err).
				WithContext("pattern", pattern).
				WithContext("root", absRoot).
				Build()
		}
		for _, m := range matches {
			if excluded(absRoot, m, exclude) {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func splitPatterns(patterns []string) (include, exclude []string, err error) {
	for _, raw := range patterns {
		p := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
		if p == "" {
			continue
		}
		negated := strings.HasPrefix(p, "!")
		if negated {
			p = strings.TrimPrefix(p, "!")
		}
		p = strings.TrimPrefix(p, "./")
		if !doublestar.ValidatePattern(p) {
			return nil, nil, errors.GlobError("invalid glob pattern").
				WithContext("pattern", raw).
				Build()
		}
		if negated {
			exclude = append(exclude, p)
		} else {
			include = append(include, p)
		}
	}
	return include, exclude, nil
}

func match(fsys fs.FS, absRoot, pattern string) ([]string, error) {
	if isAbs(pattern) {
		matches, err := doublestar.FilepathGlob(filepath.FromSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for i, m := range matches {
			matches[i] = pathutil.Normalize(m)
		}
		return matches, nil
	}

	rel, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	for i, m := range rel {
		rel[i] = path.Join(absRoot, m)
	}
	return rel, nil
}

func excluded(absRoot, file string, exclude []string) bool {
	rel := strings.TrimPrefix(strings.TrimPrefix(file, absRoot), "/")
	for _, pattern := range exclude {
		target := rel
		if isAbs(pattern) {
			target = file
		}
		if ok, err := doublestar.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

func isAbs(pattern string) bool {
	return strings.HasPrefix(pattern, "/") || filepath.IsAbs(filepath.FromSlash(pattern))
}

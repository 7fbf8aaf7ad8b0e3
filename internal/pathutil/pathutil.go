// Package pathutil normalizes filesystem paths into the canonical, comparable
// form used as registry keys and report labels.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalize returns an absolute, cleaned, forward-slash path. Back-slashes are
// treated as separators on every OS so keys compare equally regardless of how
// the caller spelled the path. It never fails; if the working directory cannot
// be determined the cleaned input is returned.
func Normalize(path string) string {
	slashed := strings.ReplaceAll(path, `\`, "/")
	native := filepath.FromSlash(slashed)
	abs, err := filepath.Abs(native)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(native))
	}
	return filepath.ToSlash(abs)
}

// RelativeTo returns path relative to base in slash form, with any leading
// "../" segments and separators removed so the result can always be joined
// under a destination root. An empty base means the working directory.
func RelativeTo(base, path string) string {
	if base == "" {
		base = "."
	}
	absBase, err := filepath.Abs(filepath.FromSlash(base))
	if err != nil {
		absBase = filepath.FromSlash(base)
	}
	absPath, err := filepath.Abs(filepath.FromSlash(path))
	if err != nil {
		absPath = filepath.FromSlash(path)
	}

	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		// Different volumes; fall back to the path without its volume name.
		rel = strings.TrimPrefix(absPath, filepath.VolumeName(absPath))
	}
	rel = filepath.ToSlash(rel)

	for {
		switch {
		case rel == "..":
			rel = ""
		case strings.HasPrefix(rel, "../"):
			rel = rel[3:]
			continue
		case strings.HasPrefix(rel, "/"):
			rel = rel[1:]
			continue
		}
		break
	}
	if rel == "." {
		return ""
	}
	return rel
}

// Depth counts the path segments of a slash or native path.
func Depth(path string) int {
	trimmed := strings.Trim(strings.ReplaceAll(path, `\`, "/"), "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

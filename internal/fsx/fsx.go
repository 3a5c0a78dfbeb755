// Package fsx implements the filesystem abstraction described in
// spec.md §4.A: a scope rooted at a fixed absolute directory, used as
// the sole means of touching the host filesystem from the rest of the
// cache. It is grounded on mutagen's pkg/filesystem package (atomic
// writes, executability toggling) and on its glob support built atop
// github.com/bmatcuk/doublestar/v4.
package fsx

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// Filesystem is a scope rooted at a fixed absolute directory. All
// relative paths passed to its methods are interpreted relative to
// that root; absolute paths are honored verbatim, by design, as an
// intentional escape hatch (spec.md §4.A).
type Filesystem struct {
	root string
}

// New constructs a Filesystem rooted at root, which must be an
// absolute path. This is the only entry point for constructing a
// top-level scope; narrower scopes are derived with Sub.
func New(root string) (*Filesystem, error) {
	if !filepath.IsAbs(root) {
		return nil, errors.Errorf("filesystem root must be absolute: %q", root)
	}
	return &Filesystem{root: filepath.Clean(root)}, nil
}

// Root returns the filesystem's absolute root directory.
func (f *Filesystem) Root() string {
	return f.root
}

// resolve computes the absolute, on-disk path for a scope-relative (or
// absolute, per the escape hatch) path. A relative path that would
// land outside the root via ".." is rejected rather than silently
// cleaned, per spec.md §4.A: only the absolute-path escape hatch is
// intentional.
func (f *Filesystem) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	joined := filepath.Join(f.root, path)
	if joined != f.root && !strings.HasPrefix(joined, f.root+string(filepath.Separator)) {
		return "", errors.Errorf("path %q escapes filesystem root", path)
	}
	return joined, nil
}

// Sub derives a new Filesystem rooted at a relative sub-path of this
// filesystem. It is the exclusive means of composing directory
// layouts such as cache_root/{blobs,inputs_to_outputs,...}.
func (f *Filesystem) Sub(relative string) (*Filesystem, error) {
	if filepath.IsAbs(relative) {
		return nil, errors.Errorf("sub-scope path must be relative: %q", relative)
	}
	resolved, err := f.resolve(relative)
	if err != nil {
		return nil, err
	}
	return New(resolved)
}

// OpenRead opens a path for reading.
func (f *Filesystem) OpenRead(path string) (io.ReadCloser, error) {
	resolved, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(resolved)
	if err != nil {
		return nil, wrapIOError("open for read", path, err)
	}
	return file, nil
}

// OpenWrite opens a path for writing, creating it (and any enclosing
// directories it does not already have) or truncating it if it
// already exists.
func (f *Filesystem) OpenWrite(path string) (io.WriteCloser, error) {
	resolved, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return nil, wrapIOError("create parent directory for", path, err)
	}
	file, err := os.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, wrapIOError("open for write", path, err)
	}
	return file, nil
}

// Move moves a path within the same tree.
func (f *Filesystem) Move(oldPath, newPath string) error {
	resolvedOld, err := f.resolve(oldPath)
	if err != nil {
		return err
	}
	resolvedNew, err := f.resolve(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolvedNew), 0755); err != nil {
		return wrapIOError("create parent directory for", newPath, err)
	}
	if err := os.Rename(resolvedOld, resolvedNew); err != nil {
		return wrapIOError("move", oldPath, err)
	}
	return nil
}

// Remove deletes a path.
func (f *Filesystem) Remove(path string) error {
	resolved, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		return wrapIOError("remove", path, err)
	}
	return nil
}

// MkdirAll creates a directory chain.
func (f *Filesystem) MkdirAll(path string) error {
	resolved, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(resolved, 0755); err != nil {
		return wrapIOError("create directory", path, err)
	}
	return nil
}

// Exists reports whether a path exists and, if so, whether it is a
// regular file as opposed to a directory.
func (f *Filesystem) Exists(path string) (exists bool, isFile bool, err error) {
	resolved, err := f.resolve(path)
	if err != nil {
		return false, false, err
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return false, false, nil
		}
		return false, false, wrapIOError("stat", path, statErr)
	}
	return true, !info.IsDir(), nil
}

// AbsolutePath returns the resolved on-disk path for a scope-relative
// path, primarily for constructing paths to hand to an external
// process (e.g. a runner).
func (f *Filesystem) AbsolutePath(path string) (string, error) {
	return f.resolve(path)
}

// Glob executes a glob pattern, returning every matching path made
// relative to the filesystem's root. Absolute patterns are honored
// verbatim (matched against the whole filesystem); relative patterns
// are evaluated as rooted at f.root, per spec.md §4.A.
func (f *Filesystem) Glob(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("malformed glob pattern: %q", pattern)
	}

	if filepath.IsAbs(pattern) {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to evaluate glob %q", pattern)
		}
		results := make([]string, 0, len(matches))
		for _, m := range matches {
			rel, err := filepath.Rel(f.root, m)
			if err != nil {
				rel = m
			}
			results = append(results, filepath.ToSlash(rel))
		}
		sort.Strings(results)
		return results, nil
	}

	fsys := os.DirFS(f.root)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to evaluate glob %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// MatchSingle tests a single scope-relative path against a glob
// pattern without listing any directory.
func (f *Filesystem) MatchSingle(path, pattern string) (bool, error) {
	clean := filepath.ToSlash(path)
	if filepath.IsAbs(pattern) {
		resolved, err := f.resolve(path)
		if err != nil {
			return false, err
		}
		clean = filepath.ToSlash(resolved)
	}
	matched, err := doublestar.Match(pattern, clean)
	if err != nil {
		return false, errors.Wrapf(err, "malformed glob pattern: %q", pattern)
	}
	return matched, nil
}

// wrapIOError attaches the operation and path to a filesystem error so
// that it carries enough context to identify what failed, per spec.md
// §4.A's failure-mode requirement.
func wrapIOError(operation, path string, err error) error {
	if os.IsNotExist(err) {
		return errors.Wrapf(err, "%s %q: not found", operation, path)
	}
	if os.IsPermission(err) {
		return errors.Wrapf(err, "%s %q: permission denied", operation, path)
	}
	return errors.Wrapf(err, "%s %q", operation, path)
}

// ReadLines reads a file's content split into lines, stripping a
// single trailing newline from the final line if present. It is used
// by input discovery when scanning files for inter-file references.
func (f *Filesystem) ReadLines(path string) ([]string, error) {
	reader, err := f.OpenRead(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, wrapIOError("read", path, err)
	}
	text := string(data)
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

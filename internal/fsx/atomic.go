package fsx

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TemporaryNamePrefix marks files created as scratch space for an
// atomic write. Anything bearing this prefix is safe to delete if
// found orphaned after a crash.
const TemporaryNamePrefix = ".ae-temporary-"

// CreateTemporary creates a temporary file in directory (the directory
// of the eventual destination, so that the rename that finalizes it
// stays on one device) and returns its writer together with its scope-relative name. The
// caller is responsible for writing, closing, and then either renaming
// it into place (RenameTemporary) or removing it on failure.
func (f *Filesystem) CreateTemporary(directory, namePrefix string) (io.WriteCloser, string, error) {
	resolvedDir, err := f.resolve(directory)
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(resolvedDir, 0755); err != nil {
		return nil, "", wrapIOError("create parent directory for temporary file in", directory, err)
	}
	name := TemporaryNamePrefix + namePrefix + "-" + uuid.NewString()
	resolved := filepath.Join(resolvedDir, name)
	file, err := os.OpenFile(resolved, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, "", errors.Wrapf(err, "unable to create temporary file in %q", directory)
	}
	return file, filepath.Join(directory, name), nil
}

// RenameTemporary renames a path produced by CreateTemporary into its
// final location, providing atomicity on the destination name.
func (f *Filesystem) RenameTemporary(temporaryPath, finalPath string) error {
	return f.Move(temporaryPath, finalPath)
}

// RemoveBestEffort removes a path and discards any error, for cleanup
// paths where the original error already being reported takes
// priority (mirrors the teacher's must.OSRemove idiom).
func (f *Filesystem) RemoveBestEffort(path string) {
	resolved, err := f.resolve(path)
	if err != nil {
		return
	}
	_ = os.Remove(resolved)
}

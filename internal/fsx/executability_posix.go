//go:build !windows

package fsx

import (
	"os"

	"github.com/pkg/errors"
)

// ownerExecuteBit is the owner-execute permission bit, isolated here so
// that MarkExecutable touches only it and leaves group/other bits
// exactly as they were, per spec.md §4.A.
const ownerExecuteBit = 0100

// MarkExecutable sets the owner-execute bit on a path, preserving
// every other permission bit.
func (f *Filesystem) MarkExecutable(path string) error {
	resolved, err := f.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return wrapIOError("stat", path, err)
	}
	mode := info.Mode()
	if mode&ownerExecuteBit != 0 {
		return nil
	}
	if err := os.Chmod(resolved, mode|ownerExecuteBit); err != nil {
		return errors.Wrapf(err, "unable to mark %q executable", path)
	}
	return nil
}

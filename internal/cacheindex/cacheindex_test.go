package cacheindex

import (
	"testing"

	"artifactexec/internal/fsx"
	"artifactexec/internal/identity"
	"artifactexec/internal/logging"
)

func newFS(t *testing.T) *fsx.Filesystem {
	t.Helper()
	fs, err := fsx.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestPutFlushReopenContains(t *testing.T) {
	fs := newFS(t)
	log := logging.NewRoot(logging.LevelWarn)

	idx := Create(fs, "inputs.listing", log)
	fp := identity.Identity{0x01, 0x02}
	idx.Put(fp)
	if err := idx.Flush(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(fs, "inputs.listing", log)
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Contains(fp) {
		t.Error("expected reopened index to contain the flushed fingerprint")
	}
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	fs := newFS(t)
	log := logging.NewRoot(logging.LevelWarn)

	idx, err := Open(fs, "does-not-exist.listing", log)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Contains(identity.Identity{0x01}) {
		t.Error("expected empty index for a missing file")
	}
}

func TestRemove(t *testing.T) {
	fs := newFS(t)
	log := logging.NewRoot(logging.LevelWarn)
	idx := Create(fs, "inputs.listing", log)
	fp := identity.Identity{0x01}
	idx.Put(fp)
	idx.Remove(fp)
	if idx.Contains(fp) {
		t.Error("expected fingerprint to be removed")
	}
}

func TestFlushBestEffortDoesNotPanicOnFailure(t *testing.T) {
	fs := newFS(t)
	log := logging.NewRoot(logging.LevelWarn)
	// A path under a file (not a directory) forces OpenWrite to fail.
	writer, err := fs.OpenWrite("blocker")
	if err != nil {
		t.Fatal(err)
	}
	writer.Close()
	idx := Create(fs, "blocker/inputs.listing", log)
	idx.FlushBestEffort()
}

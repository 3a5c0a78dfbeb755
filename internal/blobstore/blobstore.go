// Package blobstore implements the content-addressed blob store and
// its pointer indirection described in spec.md §4.G: immutable blobs
// named by the digest of their content, and pointer files mapping one
// identity to another, used for fingerprint-to-outputs and
// fingerprint-to-metadata indirection.
//
// Atomic placement follows the same temp-file-then-rename protocol as
// internal/fsx's atomic-write helpers (CreateTemporary and
// RenameTemporary), grounded on
// mutagen's staging machinery (pkg/synchronization/core/staging).
package blobstore

import (
	"io"

	"github.com/pkg/errors"

	"artifactexec/internal/codec"
	"artifactexec/internal/fsx"
	"artifactexec/internal/identity"
)

// blobTemporaryPrefix names scratch files created while computing a
// large blob's identity, before it is known and the file can be
// renamed into place.
const blobTemporaryPrefix = "blob"

// Store is a content-addressed blob store rooted at a single
// directory (conventionally "blobs" within a cache root).
type Store struct {
	fs *fsx.Filesystem
}

// New wraps fs as a blob store.
func New(fs *fsx.Filesystem) *Store {
	return &Store{fs: fs}
}

// WriteSmall serializes v with the canonical codec, hashes the result,
// and writes it to its content-addressed path in one pass. Suitable
// for values small enough to hold in memory.
func (s *Store) WriteSmall(v interface{}) (identity.Identity, error) {
	encoded, err := codec.ToString(v)
	if err != nil {
		return identity.Identity{}, err
	}
	id, err := identity.IdentifyFileContent("", []byte(encoded))
	if err != nil {
		return identity.Identity{}, err
	}
	if err := s.writeBytesAt(id, []byte(encoded)); err != nil {
		return identity.Identity{}, err
	}
	return id, nil
}

// WriteLarge streams v through write to a temporary file, then rewinds
// (by reopening) to compute its identity before renaming it into
// place. Suitable for values too large to serialize into memory first.
func (s *Store) WriteLarge(write func(io.Writer) error) (identity.Identity, error) {
	writer, tempPath, err := s.fs.CreateTemporary(".", blobTemporaryPrefix)
	if err != nil {
		return identity.Identity{}, err
	}
	if err := write(writer); err != nil {
		writer.Close()
		s.fs.RemoveBestEffort(tempPath)
		return identity.Identity{}, errors.Wrap(err, "unable to write large blob")
	}
	if err := writer.Close(); err != nil {
		s.fs.RemoveBestEffort(tempPath)
		return identity.Identity{}, errors.Wrap(err, "unable to finalize large blob write")
	}

	id, err := identity.IdentifyFile(s.fs, tempPath)
	if err != nil {
		s.fs.RemoveBestEffort(tempPath)
		return identity.Identity{}, err
	}

	finalPath := id.String()
	exists, _, err := s.fs.Exists(finalPath)
	if err != nil {
		s.fs.RemoveBestEffort(tempPath)
		return identity.Identity{}, err
	}
	if exists {
		// Idempotent: identical content already present under this
		// identity, so the freshly written temp copy is redundant.
		s.fs.RemoveBestEffort(tempPath)
		return id, nil
	}
	if err := s.fs.RenameTemporary(tempPath, finalPath); err != nil {
		return identity.Identity{}, err
	}
	return id, nil
}

// CopyInFile stores the content of an existing file as a blob under
// its computed identity, without requiring the caller to read it into
// memory.
func (s *Store) CopyInFile(source *fsx.Filesystem, path string) (identity.Identity, error) {
	id, err := identity.IdentifyFile(source, path)
	if err != nil {
		return identity.Identity{}, err
	}
	finalPath := id.String()
	exists, _, err := s.fs.Exists(finalPath)
	if err != nil {
		return identity.Identity{}, err
	}
	if exists {
		return id, nil
	}

	reader, err := source.OpenRead(path)
	if err != nil {
		return identity.Identity{}, err
	}
	defer reader.Close()

	writer, tempPath, err := s.fs.CreateTemporary(".", blobTemporaryPrefix)
	if err != nil {
		return identity.Identity{}, err
	}
	if _, err := io.Copy(writer, reader); err != nil {
		writer.Close()
		s.fs.RemoveBestEffort(tempPath)
		return identity.Identity{}, errors.Wrap(err, "unable to copy file into blob store")
	}
	if err := writer.Close(); err != nil {
		s.fs.RemoveBestEffort(tempPath)
		return identity.Identity{}, errors.Wrap(err, "unable to finalize copied blob")
	}
	if err := s.fs.RenameTemporary(tempPath, finalPath); err != nil {
		return identity.Identity{}, err
	}
	return id, nil
}

// Read deserializes the blob at id into v using the canonical codec.
func (s *Store) Read(id identity.Identity, v interface{}) error {
	reader, err := s.fs.OpenRead(id.String())
	if err != nil {
		return err
	}
	defer reader.Close()
	return codec.FromReader(reader, v)
}

// OpenRaw opens the blob at id for direct streaming reads, bypassing
// codec decoding (e.g. for replaying a captured stdout/stderr blob).
func (s *Store) OpenRaw(id identity.Identity) (io.ReadCloser, error) {
	return s.fs.OpenRead(id.String())
}

// Verify recomputes the digest of the blob at id and confirms it
// equals id, per spec.md §8's blob-integrity property.
func (s *Store) Verify(id identity.Identity) error {
	actual, err := identity.IdentifyFile(s.fs, id.String())
	if err != nil {
		return err
	}
	if actual != id {
		return errors.Errorf("blob integrity violation: %s does not digest to itself (got %s)", id, actual)
	}
	return nil
}

func (s *Store) writeBytesAt(id identity.Identity, content []byte) error {
	finalPath := id.String()
	exists, _, err := s.fs.Exists(finalPath)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	writer, tempPath, err := s.fs.CreateTemporary(".", blobTemporaryPrefix)
	if err != nil {
		return err
	}
	if _, err := writer.Write(content); err != nil {
		writer.Close()
		s.fs.RemoveBestEffort(tempPath)
		return errors.Wrap(err, "unable to write blob")
	}
	if err := writer.Close(); err != nil {
		s.fs.RemoveBestEffort(tempPath)
		return errors.Wrap(err, "unable to finalize blob write")
	}
	return s.fs.RenameTemporary(tempPath, finalPath)
}

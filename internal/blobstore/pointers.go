package blobstore

import (
	"io"

	"github.com/pkg/errors"

	"artifactexec/internal/fsx"
	"artifactexec/internal/identity"
)

// pointerTemporaryPrefix names scratch files used while computing a
// large-source pointer's source identity.
const pointerTemporaryPrefix = "pointer"

// Pointers is a directory of blob pointers: files named by a source
// identity, containing a destination identity. It is used for
// fingerprint-to-outputs and fingerprint-to-metadata indirection
// (spec.md §4.G), each instance wrapping a distinct sub-scope such as
// "inputs_to_outputs" or "inputs_to_metadata".
type Pointers struct {
	fs *fsx.Filesystem
}

// NewPointers wraps fs as a pointer directory.
func NewPointers(fs *fsx.Filesystem) *Pointers {
	return &Pointers{fs: fs}
}

// WriteSmallSource hashes sourceContent in memory to determine the
// pointer's filename, then writes dest's hex form as its content.
func (p *Pointers) WriteSmallSource(sourceContent []byte, dest identity.Identity) (identity.Identity, error) {
	source, err := identity.IdentifyFileContent("", sourceContent)
	if err != nil {
		return identity.Identity{}, err
	}
	return source, p.WriteRaw(source, dest)
}

// WriteLargeSource streams the source content through writeSource to
// compute its identity without holding it all in memory, then writes
// dest's hex form under that identity. The streamed content itself is
// not retained; only its digest determines the pointer's name.
func (p *Pointers) WriteLargeSource(writeSource func(io.Writer) error, dest identity.Identity) (identity.Identity, error) {
	writer, tempPath, err := p.fs.CreateTemporary(".", pointerTemporaryPrefix)
	if err != nil {
		return identity.Identity{}, err
	}
	if err := writeSource(writer); err != nil {
		writer.Close()
		p.fs.RemoveBestEffort(tempPath)
		return identity.Identity{}, errors.Wrap(err, "unable to stream pointer source content")
	}
	if err := writer.Close(); err != nil {
		p.fs.RemoveBestEffort(tempPath)
		return identity.Identity{}, errors.Wrap(err, "unable to finalize pointer source content")
	}
	source, err := identity.IdentifyFile(p.fs, tempPath)
	p.fs.RemoveBestEffort(tempPath)
	if err != nil {
		return identity.Identity{}, err
	}
	return source, p.WriteRaw(source, dest)
}

// WriteRaw writes a pointer from an explicitly given source identity
// to dest, with no hashing of its own.
func (p *Pointers) WriteRaw(source, dest identity.Identity) error {
	finalPath := source.String()
	exists, _, err := p.fs.Exists(finalPath)
	if err != nil {
		return err
	}
	if exists {
		existing, err := p.Read(source)
		if err == nil && existing == dest {
			return nil
		}
	}
	writer, tempPath, err := p.fs.CreateTemporary(".", pointerTemporaryPrefix)
	if err != nil {
		return err
	}
	if _, err := writer.Write([]byte(dest.String())); err != nil {
		writer.Close()
		p.fs.RemoveBestEffort(tempPath)
		return errors.Wrap(err, "unable to write pointer")
	}
	if err := writer.Close(); err != nil {
		p.fs.RemoveBestEffort(tempPath)
		return errors.Wrap(err, "unable to finalize pointer write")
	}
	return p.fs.RenameTemporary(tempPath, finalPath)
}

// Lookup reads the pointer at source. A missing pointer is reported
// via ok=false rather than an error, since a cache miss is an
// expected, non-exceptional outcome (spec.md §6).
func (p *Pointers) Lookup(source identity.Identity) (dest identity.Identity, ok bool, err error) {
	exists, isFile, err := p.fs.Exists(source.String())
	if err != nil {
		return identity.Identity{}, false, err
	}
	if !exists || !isFile {
		return identity.Identity{}, false, nil
	}
	dest, err = p.Read(source)
	if err != nil {
		return identity.Identity{}, false, err
	}
	return dest, true, nil
}

// Read reads the pointer at source, returning an error if it is
// absent (use Lookup for miss-is-not-an-error semantics).
func (p *Pointers) Read(source identity.Identity) (identity.Identity, error) {
	reader, err := p.fs.OpenRead(source.String())
	if err != nil {
		return identity.Identity{}, err
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		return identity.Identity{}, errors.Wrap(err, "unable to read pointer")
	}
	return identity.ParseString(string(content))
}

// Package cacheindex implements the persisted index of task-input
// fingerprints known to the cache (spec.md §4.H): an in-memory,
// mutable set that can be flushed to its canonical Listing form on
// disk, with a best-effort flush attempted at scope exit.
package cacheindex

import (
	"artifactexec/internal/codec"
	"artifactexec/internal/fsx"
	"artifactexec/internal/identity"
	"artifactexec/internal/logging"
	"artifactexec/internal/model"
)

// Index is a mutable, in-memory view of the set of fingerprints the
// cache has recorded, backed by a single file within a filesystem
// scope.
type Index struct {
	fs      *fsx.Filesystem
	path    string
	log     *logging.Logger
	entries map[identity.Identity]bool
}

// Create constructs an empty index backed by path within fs. The file
// is not written until Flush is called.
func Create(fs *fsx.Filesystem, path string, log *logging.Logger) *Index {
	return &Index{fs: fs, path: path, log: log, entries: make(map[identity.Identity]bool)}
}

// Open loads an index from an existing listing file. A missing file
// is treated the same as Create: an empty index, since an absent
// index is indistinguishable from one that has never recorded a hit.
func Open(fs *fsx.Filesystem, path string, log *logging.Logger) (*Index, error) {
	exists, isFile, err := fs.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists || !isFile {
		return Create(fs, path, log), nil
	}

	reader, err := fs.OpenRead(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var listing model.Listing
	if err := codec.FromReader(reader, &listing); err != nil {
		return nil, err
	}
	canonical, err := model.NewListingFromManifest(listing.Fingerprints)
	if err != nil {
		return nil, err
	}

	entries := make(map[identity.Identity]bool, len(canonical.Fingerprints))
	for _, fp := range canonical.Fingerprints {
		entries[fp] = true
	}
	return &Index{fs: fs, path: path, log: log, entries: entries}, nil
}

// Contains reports whether fp is recorded in the index.
func (idx *Index) Contains(fp identity.Identity) bool {
	return idx.entries[fp]
}

// Put records fp in the index.
func (idx *Index) Put(fp identity.Identity) {
	idx.entries[fp] = true
}

// Remove discards fp from the index, if present.
func (idx *Index) Remove(fp identity.Identity) {
	delete(idx.entries, fp)
}

// Flush serializes the index to its canonical, sorted and
// deduplicated Listing form and writes it to its backing file.
func (idx *Index) Flush() error {
	fingerprints := make([]identity.Identity, 0, len(idx.entries))
	for fp := range idx.entries {
		fingerprints = append(fingerprints, fp)
	}
	listing := model.NewListingFromConfig(fingerprints)

	writer, err := idx.fs.OpenWrite(idx.path)
	if err != nil {
		return err
	}
	defer writer.Close()
	return codec.ToWriter(writer, listing)
}

// FlushBestEffort attempts to flush the index and logs, rather than
// propagates, any failure. It is intended for scope-exit (e.g.
// deferred) use, per spec.md §4.H and §9's write-on-scope-exit note:
// by the time it runs the caller has usually already lost the ability
// to react to an error.
func (idx *Index) FlushBestEffort() {
	if err := idx.Flush(); err != nil {
		idx.log.Warnf("best-effort index flush failed: %v", err)
	}
}

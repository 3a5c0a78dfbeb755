package model

import (
	"sort"

	"artifactexec/internal/identity"
)

// FileIdentity pairs a relative path with its content identity. A nil
// Identity indicates a declared path that was absent or unreadable at
// identification time (spec.md §3).
type FileIdentity struct {
	Path     string             `json:"path"`
	Identity *identity.Identity `json:"identity,omitempty"`
}

// FileIdentitiesManifest is a tagged, sorted, duplicate-free sequence
// of FileIdentity entries. The Scheme tag records which identity
// scheme was used to compute every present identity, forbidding
// cross-scheme comparison (spec.md §3, §4.B).
type FileIdentitiesManifest struct {
	Scheme  string         `json:"scheme"`
	Entries []FileIdentity `json:"entries"`
}

// NewFileIdentitiesManifestFromConfig builds a canonical manifest from
// an unordered sequence of entries, sorting by path. Two entries naming the same path is always a
// configuration error, even under the tolerant constructor, since
// there is no sensible way to merge conflicting identities for one
// path.
func NewFileIdentitiesManifestFromConfig(scheme string, entries []FileIdentity) (FileIdentitiesManifest, error) {
	sorted := append([]FileIdentity(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	if path, dup := firstDuplicatePath(sorted); dup {
		return FileIdentitiesManifest{}, &ConfigurationError{message: "duplicate path in file-identities manifest: " + path}
	}
	return FileIdentitiesManifest{Scheme: scheme, Entries: sorted}, nil
}

// NewFileIdentitiesManifestFromManifest builds a canonical manifest
// from a sequence that must already be sorted by path and free of
// duplicate paths.
func NewFileIdentitiesManifestFromManifest(scheme string, entries []FileIdentity) (FileIdentitiesManifest, error) {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	sortedPaths, dedupedPaths := sortDedupStrings(paths)
	if !isSorted(paths) || hasDuplicates(sortedPaths) {
		return FileIdentitiesManifest{}, newStrictOrderError("file-identities manifest", paths, sortedPaths, dedupedPaths)
	}
	return FileIdentitiesManifest{Scheme: scheme, Entries: append([]FileIdentity(nil), entries...)}, nil
}

func firstDuplicatePath(sorted []FileIdentity) (string, bool) {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Path == sorted[i-1].Path {
			return sorted[i].Path, true
		}
	}
	return "", false
}

// Equal reports whether two manifests have the same scheme and the
// same path/identity pairs in the same order.
func (m FileIdentitiesManifest) Equal(other FileIdentitiesManifest) bool {
	if m.Scheme != other.Scheme || len(m.Entries) != len(other.Entries) {
		return false
	}
	for i := range m.Entries {
		a, b := m.Entries[i], other.Entries[i]
		if a.Path != b.Path {
			return false
		}
		if (a.Identity == nil) != (b.Identity == nil) {
			return false
		}
		if a.Identity != nil && *a.Identity != *b.Identity {
			return false
		}
	}
	return true
}

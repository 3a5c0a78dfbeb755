package model

// FilesManifest is a sorted, duplicate-free sequence of relative
// paths (spec.md §3). It never contains absolute paths once
// canonical; input discovery and output projection are the only
// producers of new FilesManifest values.
type FilesManifest struct {
	Paths []string `json:"paths"`
}

// NewFilesManifestFromConfig builds a canonical FilesManifest from an
// arbitrary, possibly unsorted and duplicate-containing set of paths
// (the tolerant path used internally by discovery and projection,
// which both end with a "collect, sort, deduplicate" step).
func NewFilesManifestFromConfig(paths []string) (FilesManifest, error) {
	for _, p := range paths {
		if err := rejectAbsolutePath(p); err != nil {
			return FilesManifest{}, err
		}
	}
	_, deduped := sortDedupStrings(paths)
	return FilesManifest{Paths: deduped}, nil
}

// NewFilesManifestFromManifest builds a canonical FilesManifest from a
// sequence that must already be sorted and deduplicated, as required
// when loading a manifest that was itself serialized from a prior
// canonical value. Out-of-order or duplicated input is a
// ConfigurationError carrying the §4.D diagnostic diff.
func NewFilesManifestFromManifest(paths []string) (FilesManifest, error) {
	for _, p := range paths {
		if err := rejectAbsolutePath(p); err != nil {
			return FilesManifest{}, err
		}
	}
	sorted, deduped := sortDedupStrings(paths)
	if !isSorted(paths) || hasDuplicates(sorted) {
		return FilesManifest{}, newStrictOrderError("files manifest", paths, sorted, deduped)
	}
	return FilesManifest{Paths: append([]string(nil), paths...)}, nil
}

func rejectAbsolutePath(path string) error {
	if len(path) > 0 && (path[0] == '/' || path[0] == '\\') {
		return &ConfigurationError{message: "files manifest may not contain absolute paths: " + path}
	}
	return nil
}

// Equal reports whether two FilesManifest values contain the same
// paths in the same order.
func (m FilesManifest) Equal(other FilesManifest) bool {
	if len(m.Paths) != len(other.Paths) {
		return false
	}
	for i := range m.Paths {
		if m.Paths[i] != other.Paths[i] {
			return false
		}
	}
	return true
}

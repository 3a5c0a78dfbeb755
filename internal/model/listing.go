package model

import (
	"sort"

	"artifactexec/internal/identity"
)

// Listing is the canonical, sorted, duplicate-free serialized form of
// the index: the set of task-input fingerprints known to the cache
// (spec.md §3, §4.H).
type Listing struct {
	Fingerprints []identity.Identity `json:"fingerprints"`
}

// NewListingFromConfig builds a canonical Listing from an unordered
// set of fingerprints, sorting and deduplicating.
func NewListingFromConfig(fingerprints []identity.Identity) Listing {
	sorted := append([]identity.Identity(nil), fingerprints...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	deduped := make([]identity.Identity, 0, len(sorted))
	for i, id := range sorted {
		if i == 0 || id != sorted[i-1] {
			deduped = append(deduped, id)
		}
	}
	return Listing{Fingerprints: deduped}
}

// NewListingFromManifest builds a canonical Listing from a sequence
// that must already be sorted and deduplicated, as when reading a
// persisted listing file. Violation is treated as cache corruption
// (spec.md §7's integrity error).
func NewListingFromManifest(fingerprints []identity.Identity) (Listing, error) {
	for i := 1; i < len(fingerprints); i++ {
		if !fingerprints[i-1].Less(fingerprints[i]) {
			return Listing{}, NewIntegrityError("index listing is not sorted and deduplicated")
		}
	}
	return Listing{Fingerprints: append([]identity.Identity(nil), fingerprints...)}, nil
}

// Contains reports whether the listing contains the given fingerprint.
func (l Listing) Contains(id identity.Identity) bool {
	i := sort.Search(len(l.Fingerprints), func(i int) bool {
		return !l.Fingerprints[i].Less(id)
	})
	return i < len(l.Fingerprints) && l.Fingerprints[i] == id
}

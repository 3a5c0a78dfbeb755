package model

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
)

// ConfigurationError represents a violation of a canonical invariant
// in user-supplied configuration or a cache-resident manifest (spec.md
// §7). Strict constructors report it with a diff of what they were
// given versus what they expected.
type ConfigurationError struct {
	message string
}

func (e *ConfigurationError) Error() string {
	return e.message
}

// NewConfigurationError builds a ConfigurationError from other
// packages that need to report a user-configuration violation this
// package does not itself validate (e.g. discovery's "surely includes
// none" check).
func NewConfigurationError(message string) error {
	return &ConfigurationError{message: message}
}

// IntegrityError represents data read back from the cache that does
// not satisfy an invariant the cache itself guarantees when writing
// (spec.md §7): the data is treated as corruption, not something to
// recover from silently.
type IntegrityError struct {
	message string
}

func (e *IntegrityError) Error() string {
	return e.message
}

// NewIntegrityError builds an IntegrityError from other packages that
// detect cache corruption this package does not itself read (e.g. the
// executor's identity-scheme check on a stored Task Outputs value).
func NewIntegrityError(message string) error {
	return &IntegrityError{message: message}
}

// newStrictOrderError builds the "input vs. sorted" / "sorted vs.
// sorted+deduped" diagnostic spec.md §4.D requires for a manifest that
// was not already canonical.
func newStrictOrderError(kind string, input, sorted, sortedDeduped []string) error {
	parts := fmt.Sprintf(
		"%s is not canonical (must already be sorted and deduplicated)\n"+
			"input vs. sorted:\n%s\nsorted vs. sorted+deduped:\n%s",
		kind,
		cmp.Diff(input, sorted),
		cmp.Diff(sorted, sortedDeduped),
	)
	return &ConfigurationError{message: parts}
}

// sortDedupStrings returns a sorted copy of values and, separately, a
// sorted-and-deduplicated copy, without mutating the input.
func sortDedupStrings(values []string) (sorted, deduped []string) {
	sorted = append([]string(nil), values...)
	sort.Strings(sorted)
	deduped = dedupSortedStrings(sorted)
	return sorted, deduped
}

func dedupSortedStrings(sorted []string) []string {
	if len(sorted) == 0 {
		return sorted
	}
	deduped := make([]string, 0, len(sorted))
	deduped = append(deduped, sorted[0])
	for _, v := range sorted[1:] {
		if v != deduped[len(deduped)-1] {
			deduped = append(deduped, v)
		}
	}
	return deduped
}

func isSorted(values []string) bool {
	return sort.StringsAreSorted(values)
}

func hasDuplicates(sorted []string) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return true
		}
	}
	return false
}

package model

import "sort"

// EnvVar is a single environment variable assignment.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EnvVars is a canonical, sorted, duplicate-free sequence of
// environment variable assignments (spec.md §3). Sorting and
// duplicate-key detection are by Key alone; two identical keys are
// rejected regardless of their values.
type EnvVars struct {
	Pairs []EnvVar `json:"pairs"`
}

// NewEnvVarsFromConfig builds a canonical EnvVars from a
// possibly-unordered, user-supplied sequence (spec.md §3's "from user
// config" loader). Duplicate keys are rejected; otherwise the pairs
// are sorted by key.
func NewEnvVarsFromConfig(pairs []EnvVar) (EnvVars, error) {
	sorted := append([]EnvVar(nil), pairs...)
	sortEnvVars(sorted)
	if key, dup := firstDuplicateKey(sorted); dup {
		return EnvVars{}, &ConfigurationError{message: "duplicate environment variable key: " + key}
	}
	return EnvVars{Pairs: sorted}, nil
}

// NewEnvVarsFromManifest builds a canonical EnvVars from a sequence
// that must already be sorted and deduplicated (spec.md §3's "from a
// canonical manifest" loader). Out-of-order or duplicated input is an
// error.
func NewEnvVarsFromManifest(pairs []EnvVar) (EnvVars, error) {
	if !envVarsSorted(pairs) {
		return EnvVars{}, &ConfigurationError{message: "environment variable manifest is not sorted by key"}
	}
	if key, dup := firstDuplicateKey(pairs); dup {
		return EnvVars{}, &ConfigurationError{message: "duplicate environment variable key in manifest: " + key}
	}
	return EnvVars{Pairs: append([]EnvVar(nil), pairs...)}, nil
}

// Equal reports whether two EnvVars values are identical in content
// and order (canonical values are always in one order, so this is a
// straightforward sequence comparison).
func (e EnvVars) Equal(other EnvVars) bool {
	if len(e.Pairs) != len(other.Pairs) {
		return false
	}
	for i := range e.Pairs {
		if e.Pairs[i] != other.Pairs[i] {
			return false
		}
	}
	return true
}

func sortEnvVars(pairs []EnvVar) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
}

func envVarsSorted(pairs []EnvVar) bool {
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Key < pairs[i-1].Key {
			return false
		}
	}
	return true
}

func firstDuplicateKey(pairs []EnvVar) (string, bool) {
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Key == pairs[i-1].Key {
			return pairs[i].Key, true
		}
	}
	return "", false
}

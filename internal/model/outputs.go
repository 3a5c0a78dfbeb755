package model

import (
	"regexp"

	"github.com/pkg/errors"
)

// MatchTransform pairs a regular expression with the replacement
// templates applied to each of its matches. Equality and hashing of a
// MatchTransform are defined over (Pattern, Replacements) — the
// pattern's source string, not its compiled automaton (spec.md §4.D,
// §9's "regex identity by source" note) — since two compiled regexes
// built from identical patterns would otherwise have no stable,
// comparable identity.
type MatchTransform struct {
	Pattern      string   `json:"pattern"`
	Replacements []string `json:"replacements"`

	compiled *regexp.Regexp
}

// NewMatchTransform validates pattern at construction and returns a
// MatchTransform ready for use in a transform sequence.
func NewMatchTransform(pattern string, replacements []string) (MatchTransform, error) {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return MatchTransform{}, errors.Wrapf(err, "invalid match-transform pattern %q", pattern)
	}
	return MatchTransform{
		Pattern:      pattern,
		Replacements: append([]string(nil), replacements...),
		compiled:     compiled,
	}, nil
}

// Regexp returns the compiled form of the transform's pattern,
// compiling it lazily if this value was constructed by decoding
// (where the unexported compiled field does not survive JSON
// round-tripping).
func (t *MatchTransform) Regexp() (*regexp.Regexp, error) {
	if t.compiled == nil {
		compiled, err := regexp.Compile(t.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid match-transform pattern %q", t.Pattern)
		}
		t.compiled = compiled
	}
	return t.compiled, nil
}

// Equal compares two transforms by pattern source and replacement
// templates, never by compiled automaton.
func (t MatchTransform) Equal(other MatchTransform) bool {
	if t.Pattern != other.Pattern || len(t.Replacements) != len(other.Replacements) {
		return false
	}
	for i := range t.Replacements {
		if t.Replacements[i] != other.Replacements[i] {
			return false
		}
	}
	return true
}

// MatchTransformSequence is an ordered pipeline of MatchTransform
// stages applied to a single seed path (spec.md §3, §4.F).
type MatchTransformSequence struct {
	Stages []MatchTransform `json:"stages"`
}

// ExcludeMatch is a regular expression used to exclude input paths
// from becoming transform seeds.
type ExcludeMatch struct {
	Pattern string `json:"pattern"`

	compiled *regexp.Regexp
}

// NewExcludeMatch validates pattern at construction.
func NewExcludeMatch(pattern string) (ExcludeMatch, error) {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return ExcludeMatch{}, errors.Wrapf(err, "invalid exclude-match pattern %q", pattern)
	}
	return ExcludeMatch{Pattern: pattern, compiled: compiled}, nil
}

// Regexp returns the compiled form, compiling lazily if necessary.
func (e *ExcludeMatch) Regexp() (*regexp.Regexp, error) {
	if e.compiled == nil {
		compiled, err := regexp.Compile(e.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid exclude-match pattern %q", e.Pattern)
		}
		e.compiled = compiled
	}
	return e.compiled, nil
}

// OutputsDescription describes how to derive a task's expected output
// paths from its resolved input set (spec.md §3, §4.F).
type OutputsDescription struct {
	IncludeFiles           []string                 `json:"include_files"`
	IncludeMatchTransforms []MatchTransformSequence `json:"include_match_transforms"`
	ExcludeMatches         []ExcludeMatch           `json:"exclude_matches"`
}

// NewOutputsDescription validates every regex in the description (the
// only invariant spec.md §4.D asks of this value at construction) and
// returns it unchanged otherwise; none of its fields are sorted, since
// they are inputs to projection, not manifests.
func NewOutputsDescription(includeFiles []string, transforms []MatchTransformSequence, excludePatterns []string) (OutputsDescription, error) {
	excludes := make([]ExcludeMatch, len(excludePatterns))
	for i, p := range excludePatterns {
		em, err := NewExcludeMatch(p)
		if err != nil {
			return OutputsDescription{}, err
		}
		excludes[i] = em
	}
	for _, sequence := range transforms {
		for i := range sequence.Stages {
			if _, err := sequence.Stages[i].Regexp(); err != nil {
				return OutputsDescription{}, err
			}
		}
	}
	return OutputsDescription{
		IncludeFiles:           append([]string(nil), includeFiles...),
		IncludeMatchTransforms: transforms,
		ExcludeMatches:         excludes,
	}, nil
}

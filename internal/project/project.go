// Package project implements output projection (spec.md §4.F): given
// the resolved input set for a task and an outputs description, it
// derives the set of output paths the task is expected to produce.
//
// It shares its match-transform vocabulary with internal/model, which
// owns the canonical MatchTransform/OutputsDescription types (their
// equality is defined over pattern source, per spec.md §9).
package project

import (
	"sort"

	"artifactexec/internal/model"
)

// Project computes the output path set for inputs under desc.
func Project(inputs model.FilesManifest, desc model.OutputsDescription) ([]string, error) {
	set := make(map[string]bool)
	for _, p := range desc.IncludeFiles {
		set[p] = true
	}

	for _, p := range inputs.Paths {
		excluded, err := matchesAnyExclude(desc, p)
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		for _, sequence := range desc.IncludeMatchTransforms {
			outputs, err := runSequence(sequence, p)
			if err != nil {
				return nil, err
			}
			for _, o := range outputs {
				set[o] = true
			}
		}
	}

	result := make([]string, 0, len(set))
	for p := range set {
		result = append(result, p)
	}
	sort.Strings(result)
	return result, nil
}

func matchesAnyExclude(desc model.OutputsDescription, path string) (bool, error) {
	for i := range desc.ExcludeMatches {
		re, err := desc.ExcludeMatches[i].Regexp()
		if err != nil {
			return false, err
		}
		if re.MatchString(path) {
			return true, nil
		}
	}
	return false, nil
}

// runSequence applies a transform sequence to a single input path,
// threading a "current paths" set through every stage. A current path
// that fails to match a stage's regex is dropped rather than passed
// through unchanged.
func runSequence(sequence model.MatchTransformSequence, path string) ([]string, error) {
	current := []string{path}
	for i := range sequence.Stages {
		stage := &sequence.Stages[i]
		re, err := stage.Regexp()
		if err != nil {
			return nil, err
		}
		var next []string
		for _, c := range current {
			if !re.MatchString(c) {
				continue
			}
			for _, template := range stage.Replacements {
				next = append(next, re.ReplaceAllString(c, template))
			}
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	return current, nil
}

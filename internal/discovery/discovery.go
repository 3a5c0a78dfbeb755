// Package discovery implements the input discovery engine of
// spec.md §4.E: from a filter description, it produces the closed set
// of files belonging to a task by seeding an include/exclude glob
// pass and then expanding that set to a fixed point by following
// inter-file references discovered by scanning file content.
//
// The fixed-point expansion over layered include/exclude rules is
// grounded on mutagen's ignore-pattern evaluation
// (pkg/synchronization/core/ignore/mutagen/ignore.go), generalized
// from a single ignore/unignore decision per path to a growing set of
// included paths.
package discovery

import (
	"regexp"
	"sort"

	"github.com/pkg/errors"

	"artifactexec/internal/fsx"
	"artifactexec/internal/model"
)

// ReferencePattern pairs a regular expression with the replacement
// templates used to derive candidate referenced paths from each of
// its matches within a scanned line.
type ReferencePattern struct {
	Pattern      string   `json:"pattern"`
	Replacements []string `json:"replacements"`

	compiled *regexp.Regexp
}

// InterFileReferenceClause describes one inter-file-reference rule:
// which files to scan, which patterns to look for, and where
// candidate paths should be resolved against the filesystem.
type InterFileReferenceClause struct {
	// FilesToMatch, if set, selects the scanning set by re-running
	// step one of discovery on this sub-config. If nil, the clause
	// scans the current accumulating set instead. A sub-config set
	// here may not itself declare InterFileReferences (spec.md §9's
	// Open Question is resolved by forbidding nesting outright).
	FilesToMatch        *InputsConfig       `json:"files_to_match,omitempty"`
	Patterns            []ReferencePattern  `json:"patterns"`
	DirectoriesToSearch []string            `json:"directories_to_search,omitempty"`
}

// InputsConfig is the user-facing description input discovery
// consumes (spec.md §4.E).
type InputsConfig struct {
	IncludeFiles        []string                    `json:"include_files,omitempty"`
	ExcludeFiles        []string                    `json:"exclude_files,omitempty"`
	IncludeGlobs        []string                    `json:"include_globs,omitempty"`
	ExcludeGlobs        []string                    `json:"exclude_globs,omitempty"`
	InterFileReferences []InterFileReferenceClause `json:"inter_file_references,omitempty"`
}

// NewInputsConfig validates cfg: every regex pattern must compile,
// nested inter-file-reference clauses are forbidden, and a
// "surely includes none" configuration (no include files or globs
// anywhere in the config or its files-to-match sub-configs) is
// rejected immediately, since it is almost certainly a mistake
// (spec.md §4.E).
func NewInputsConfig(cfg InputsConfig) (*InputsConfig, error) {
	compiled, err := compileConfig(cfg)
	if err != nil {
		return nil, err
	}
	if surelyIncludesNone(compiled) {
		return nil, model.NewConfigurationError(
			"inputs configuration surely includes no files (no include_files, include_globs, " +
				"or files_to_match sub-config that could contribute any)")
	}
	return compiled, nil
}

func compileConfig(cfg InputsConfig) (*InputsConfig, error) {
	result := &InputsConfig{
		IncludeFiles: append([]string(nil), cfg.IncludeFiles...),
		ExcludeFiles: append([]string(nil), cfg.ExcludeFiles...),
		IncludeGlobs: append([]string(nil), cfg.IncludeGlobs...),
		ExcludeGlobs: append([]string(nil), cfg.ExcludeGlobs...),
	}
	result.InterFileReferences = make([]InterFileReferenceClause, len(cfg.InterFileReferences))
	for i, clause := range cfg.InterFileReferences {
		compiledClause, err := compileClause(clause)
		if err != nil {
			return nil, errors.Wrapf(err, "inter-file-reference clause %d", i)
		}
		result.InterFileReferences[i] = compiledClause
	}
	return result, nil
}

func compileClause(clause InterFileReferenceClause) (InterFileReferenceClause, error) {
	if clause.FilesToMatch != nil && len(clause.FilesToMatch.InterFileReferences) > 0 {
		return InterFileReferenceClause{}, model.NewConfigurationError(
			"files_to_match sub-config may not itself declare inter_file_references (nesting is forbidden)")
	}
	result := clause
	result.Patterns = make([]ReferencePattern, len(clause.Patterns))
	for i, p := range clause.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return InterFileReferenceClause{}, errors.Wrapf(err, "invalid reference pattern %q", p.Pattern)
		}
		result.Patterns[i] = ReferencePattern{
			Pattern:      p.Pattern,
			Replacements: append([]string(nil), p.Replacements...),
			compiled:     re,
		}
	}
	if clause.FilesToMatch != nil {
		sub, err := compileConfig(*clause.FilesToMatch)
		if err != nil {
			return InterFileReferenceClause{}, err
		}
		result.FilesToMatch = sub
	}
	return result, nil
}

func surelyIncludesNone(cfg *InputsConfig) bool {
	if len(cfg.IncludeFiles) > 0 || len(cfg.IncludeGlobs) > 0 {
		return false
	}
	for _, clause := range cfg.InterFileReferences {
		// A clause without files_to_match scans the accumulating set,
		// which stays empty unless some files_to_match sub-config
		// contributes a file; only those sub-configs can rule emptiness
		// out.
		if clause.FilesToMatch != nil && !surelyIncludesNone(clause.FilesToMatch) {
			return false
		}
	}
	return true
}

// Discover computes the closed set of files belonging to a task,
// returning a canonical FilesManifest.
func Discover(fs *fsx.Filesystem, cfg *InputsConfig) (model.FilesManifest, error) {
	seed, err := stepOne(fs, cfg)
	if err != nil {
		return model.FilesManifest{}, err
	}

	accumulated := make(map[string]bool, len(seed))
	for _, p := range seed {
		accumulated[p] = true
	}

	// Pre-compute the static scanning set for every clause that
	// supplies its own files_to_match sub-config; it does not depend
	// on the growing accumulated set.
	staticScans := make([][]string, len(cfg.InterFileReferences))
	for i, clause := range cfg.InterFileReferences {
		if clause.FilesToMatch != nil {
			scan, err := stepOne(fs, clause.FilesToMatch)
			if err != nil {
				return model.FilesManifest{}, err
			}
			staticScans[i] = scan
		}
	}

	for {
		grew := false
		for i, clause := range cfg.InterFileReferences {
			var scanning []string
			if clause.FilesToMatch != nil {
				scanning = staticScans[i]
			} else {
				scanning = sortedKeys(accumulated)
			}
			newPaths, err := expandClause(fs, cfg, clause, scanning)
			if err != nil {
				return model.FilesManifest{}, err
			}
			for _, p := range newPaths {
				if !accumulated[p] {
					accumulated[p] = true
					grew = true
				}
			}
		}
		if !grew {
			break
		}
	}

	return model.NewFilesManifestFromConfig(sortedKeys(accumulated))
}

// stepOne computes the seed set for a config: literal include files,
// plus every path matched by an include glob, minus every path
// matched by an exclude glob, minus every literal exclude file.
func stepOne(fs *fsx.Filesystem, cfg *InputsConfig) ([]string, error) {
	set := make(map[string]bool)
	for _, p := range cfg.IncludeFiles {
		set[p] = true
	}
	for _, pattern := range cfg.IncludeGlobs {
		matches, err := fs.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to evaluate include glob %q", pattern)
		}
		for _, m := range matches {
			set[m] = true
		}
	}
	for _, pattern := range cfg.ExcludeGlobs {
		matches, err := fs.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to evaluate exclude glob %q", pattern)
		}
		for _, m := range matches {
			delete(set, m)
		}
	}
	for _, p := range cfg.ExcludeFiles {
		delete(set, p)
	}
	return sortedKeys(set), nil
}

// shallowlyExcluded tests whether path is named in cfg's exclude_files
// or matches one of its exclude_globs, without re-running discovery.
func shallowlyExcluded(fs *fsx.Filesystem, cfg *InputsConfig, path string) (bool, error) {
	for _, p := range cfg.ExcludeFiles {
		if p == path {
			return true, nil
		}
	}
	for _, pattern := range cfg.ExcludeGlobs {
		matched, err := fs.MatchSingle(path, pattern)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func expandClause(fs *fsx.Filesystem, root *InputsConfig, clause InterFileReferenceClause, scanning []string) ([]string, error) {
	var added []string
	for _, path := range scanning {
		lines, err := fs.ReadLines(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to scan %q for inter-file references", path)
		}
		for _, line := range lines {
			for _, pattern := range clause.Patterns {
				candidates := candidatesForLine(pattern, line)
				for _, candidate := range candidates {
					resolved, ok, err := resolveCandidate(fs, root, clause, candidate)
					if err != nil {
						return nil, err
					}
					if ok {
						added = append(added, resolved)
					}
				}
			}
		}
	}
	return added, nil
}

func candidatesForLine(pattern ReferencePattern, line string) []string {
	lineBytes := []byte(line)
	matches := pattern.compiled.FindAllSubmatchIndex(lineBytes, -1)
	var candidates []string
	for _, match := range matches {
		for _, tmpl := range pattern.Replacements {
			expanded := pattern.compiled.ExpandString(nil, tmpl, line, match)
			candidates = append(candidates, string(expanded))
		}
	}
	return candidates
}

func resolveCandidate(fs *fsx.Filesystem, root *InputsConfig, clause InterFileReferenceClause, candidate string) (string, bool, error) {
	tryPaths := []string{candidate}
	if len(clause.DirectoriesToSearch) > 0 {
		tryPaths = make([]string, 0, len(clause.DirectoriesToSearch)+1)
		for _, dir := range clause.DirectoriesToSearch {
			tryPaths = append(tryPaths, joinPath(dir, candidate))
		}
	}
	for _, candidatePath := range tryPaths {
		exists, isFile, err := fs.Exists(candidatePath)
		if err != nil {
			return "", false, err
		}
		if !exists || !isFile {
			continue
		}
		excluded, err := shallowlyExcluded(fs, root, candidatePath)
		if err != nil {
			return "", false, err
		}
		if excluded {
			continue
		}
		return candidatePath, true, nil
	}
	return "", false, nil
}

func joinPath(dir, candidate string) string {
	if dir == "" {
		return candidate
	}
	return dir + "/" + candidate
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

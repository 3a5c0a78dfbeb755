package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"artifactexec/internal/fsx"
)

func writeFixture(t *testing.T, root, relative, content string) {
	t.Helper()
	full := filepath.Join(root, relative)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverInterFileReferences(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a/n.stu", "irrelevant\n")
	writeFixture(t, root, "a/b/o.stu", "irrelevant\n")
	writeFixture(t, root, "a/b/p.vwx", "irrelevant\n")
	writeFixture(t, root, "a/b/c/p.vwx", "irrelevant\n")
	writeFixture(t, root, "a/b/d/p.vwx", "INCLUDE_FILE(referenced)\n")
	writeFixture(t, root, "__/referenced", "INCLUDE_FILE(b/c/p.vwx)\nINCLUDE_FILE_INTERNAL(referenced2)\n")
	writeFixture(t, root, "a/referenced2", "irrelevant\n")

	fs, err := fsx.New(root)
	if err != nil {
		t.Fatal(err)
	}

	includePattern := ReferencePattern{Pattern: `INCLUDE_FILE\(([^)]+)\)`, Replacements: []string{"$1"}}
	internalPattern := ReferencePattern{Pattern: `INCLUDE_FILE_INTERNAL\(([^)]+)\)`, Replacements: []string{"$1"}}

	cfg, err := NewInputsConfig(InputsConfig{
		IncludeFiles: []string{"a/n.stu"},
		ExcludeFiles: []string{"a/b/p.vwx"},
		IncludeGlobs: []string{"a/b/**/*.vwx"},
		ExcludeGlobs: []string{"**/c/*.vwx"},
		InterFileReferences: []InterFileReferenceClause{
			{
				Patterns:            []ReferencePattern{includePattern},
				DirectoriesToSearch: []string{"__"},
			},
			{
				FilesToMatch: &InputsConfig{
					IncludeGlobs: []string{"__/*"},
				},
				Patterns:            []ReferencePattern{internalPattern},
				DirectoriesToSearch: []string{"a"},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	manifest, err := Discover(fs, cfg)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"__/referenced", "a/b/d/p.vwx", "a/n.stu", "a/referenced2"}
	if len(manifest.Paths) != len(want) {
		t.Fatalf("got %v, want %v", manifest.Paths, want)
	}
	for i := range want {
		if manifest.Paths[i] != want[i] {
			t.Errorf("got %v, want %v", manifest.Paths, want)
		}
	}
}

func TestNewInputsConfigRejectsNestedInterFileReferences(t *testing.T) {
	_, err := NewInputsConfig(InputsConfig{
		IncludeFiles: []string{"a"},
		InterFileReferences: []InterFileReferenceClause{
			{
				FilesToMatch: &InputsConfig{
					IncludeFiles: []string{"b"},
					InterFileReferences: []InterFileReferenceClause{
						{Patterns: []ReferencePattern{{Pattern: `x`, Replacements: []string{"x"}}}},
					},
				},
				Patterns: []ReferencePattern{{Pattern: `x`, Replacements: []string{"x"}}},
			},
		},
	})
	if err == nil {
		t.Error("expected error for nested inter_file_references")
	}
}

func TestNewInputsConfigRejectsSurelyEmpty(t *testing.T) {
	_, err := NewInputsConfig(InputsConfig{})
	if err == nil {
		t.Error("expected error for a configuration that surely includes no files")
	}
}

func TestNewInputsConfigRejectsInvalidPattern(t *testing.T) {
	_, err := NewInputsConfig(InputsConfig{
		IncludeFiles: []string{"a"},
		InterFileReferences: []InterFileReferenceClause{
			{Patterns: []ReferencePattern{{Pattern: `(`, Replacements: []string{"x"}}}},
		},
	})
	if err == nil {
		t.Error("expected error for invalid regex pattern")
	}
}

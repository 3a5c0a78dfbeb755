package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnvironmentFileSortsAndSplitsOnFirstEquals(t *testing.T) {
	path := writeEnvFile(t, "B=2\nA=1\n\nC=x=y=z\n")
	vars, err := loadEnvironmentFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(vars.Pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(vars.Pairs))
	}
	if vars.Pairs[0].Key != "A" || vars.Pairs[1].Key != "B" || vars.Pairs[2].Key != "C" {
		t.Errorf("unexpected key order: %+v", vars.Pairs)
	}
	if vars.Pairs[2].Value != "x=y=z" {
		t.Errorf("expected value to retain embedded '=', got %q", vars.Pairs[2].Value)
	}
}

func TestLoadEnvironmentFileRejectsDuplicateKeys(t *testing.T) {
	path := writeEnvFile(t, "A=1\nA=2\n")
	if _, err := loadEnvironmentFile(path); err == nil {
		t.Fatal("expected an error for a duplicate key")
	}
}

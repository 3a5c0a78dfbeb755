package fsx

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestFilesystem(t *testing.T) *Filesystem {
	t.Helper()
	dir := t.TempDir()
	fs, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestNewRejectsRelativeRoot(t *testing.T) {
	if _, err := New("relative/path"); err == nil {
		t.Error("expected error for relative root")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := newTestFilesystem(t)
	w, err := fs.OpenWrite("a/b/c.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("content")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := fs.OpenRead("a/b/c.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Errorf("got %q, want %q", data, "content")
	}
}

func TestExistsDistinguishesFilesFromDirectories(t *testing.T) {
	fs := newTestFilesystem(t)
	if err := fs.MkdirAll("dir"); err != nil {
		t.Fatal(err)
	}
	w, _ := fs.OpenWrite("file.txt")
	w.Close()

	if exists, isFile, err := fs.Exists("dir"); err != nil || !exists || isFile {
		t.Errorf("directory reported as exists=%v isFile=%v err=%v", exists, isFile, err)
	}
	if exists, isFile, err := fs.Exists("file.txt"); err != nil || !exists || !isFile {
		t.Errorf("file reported as exists=%v isFile=%v err=%v", exists, isFile, err)
	}
	if exists, _, err := fs.Exists("missing"); err != nil || exists {
		t.Errorf("missing path reported as exists=%v err=%v", exists, err)
	}
}

func TestSubScope(t *testing.T) {
	fs := newTestFilesystem(t)
	sub, err := fs.Sub("blobs")
	if err != nil {
		t.Fatal(err)
	}
	w, err := sub.OpenWrite("x")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	if _, isFile, err := fs.Exists(filepath.Join("blobs", "x")); err != nil || !isFile {
		t.Errorf("file created via sub-scope not visible from parent: isFile=%v err=%v", isFile, err)
	}
}

func TestMarkExecutablePreservesOtherBits(t *testing.T) {
	fs := newTestFilesystem(t)
	w, err := fs.OpenWrite("script.sh")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	scriptPath, err := fs.AbsolutePath("script.sh")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(scriptPath, 0644); err != nil {
		t.Fatal(err)
	}
	if err := fs.MarkExecutable("script.sh"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0744 {
		t.Errorf("got mode %o, want %o", info.Mode().Perm(), 0744)
	}
}

func TestGlobRelative(t *testing.T) {
	fs := newTestFilesystem(t)
	for _, p := range []string{"a/x.txt", "a/y.txt", "a/b/z.txt"} {
		w, err := fs.OpenWrite(p)
		if err != nil {
			t.Fatal(err)
		}
		w.Close()
	}
	matches, err := fs.Glob("a/**/*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Errorf("got %d matches, want 3: %v", len(matches), matches)
	}
}

func TestMatchSingle(t *testing.T) {
	fs := newTestFilesystem(t)
	matched, err := fs.MatchSingle("a/b/c.vwx", "a/**/*.vwx")
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Error("expected match")
	}
	matched, err = fs.MatchSingle("a/b/c.stu", "a/**/*.vwx")
	if err != nil {
		t.Fatal(err)
	}
	if matched {
		t.Error("expected no match")
	}
}

func TestGlobMalformedPattern(t *testing.T) {
	fs := newTestFilesystem(t)
	if _, err := fs.Glob("a/[b"); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestCreateTemporaryAndRename(t *testing.T) {
	fs := newTestFilesystem(t)
	w, tmpPath, err := fs.CreateTemporary("blobs", "blob")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("payload")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fs.RenameTemporary(tmpPath, "blobs/final"); err != nil {
		t.Fatal(err)
	}
	if exists, isFile, err := fs.Exists("blobs/final"); err != nil || !exists || !isFile {
		t.Errorf("final blob not present: exists=%v isFile=%v err=%v", exists, isFile, err)
	}
	if exists, _, _ := fs.Exists(tmpPath); exists {
		t.Error("temporary path still exists after rename")
	}
}

package blobstore

import (
	"io"
	"strings"
	"testing"

	"artifactexec/internal/fsx"
	"artifactexec/internal/identity"
)

func newScope(t *testing.T) *fsx.Filesystem {
	t.Helper()
	fs, err := fsx.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestBlobIdempotenceAndPointerChain(t *testing.T) {
	root := newScope(t)
	blobsFS, err := root.Sub("blobs")
	if err != nil {
		t.Fatal(err)
	}
	if err := blobsFS.MkdirAll("."); err != nil {
		t.Fatal(err)
	}
	store := New(blobsFS)

	idA1, err := store.WriteLarge(func(w io.Writer) error {
		_, err := io.Copy(w, strings.NewReader("a1"))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	idB2, err := store.WriteSmall("b2")
	if err != nil {
		t.Fatal(err)
	}

	pointersFS, err := root.Sub("pointers")
	if err != nil {
		t.Fatal(err)
	}
	pointers := NewPointers(pointersFS)

	gotSource, err := pointers.WriteSmallSource([]byte("a1"), idB2)
	if err != nil {
		t.Fatal(err)
	}
	if gotSource != idA1 {
		t.Fatalf("pointer source identity %s does not match blob identity %s", gotSource, idA1)
	}

	dest, ok, err := pointers.Lookup(idA1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected pointer to be found")
	}
	if dest != idB2 {
		t.Errorf("got %s, want %s", dest, idB2)
	}

	idA1Again, err := store.WriteLarge(func(w io.Writer) error {
		_, err := io.Copy(w, strings.NewReader("a1"))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if idA1Again != idA1 {
		t.Errorf("re-writing identical content changed identity: %s vs %s", idA1Again, idA1)
	}

	if err := store.Verify(idA1); err != nil {
		t.Errorf("blob integrity check failed: %v", err)
	}
}

func TestPointerLookupMissIsNotAnError(t *testing.T) {
	fs, err := newScope(t).Sub("pointers")
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.MkdirAll("."); err != nil {
		t.Fatal(err)
	}
	pointers := NewPointers(fs)

	id, err := identity.FromBytes(make([]byte, identity.Size))
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := pointers.Lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected miss for an absent pointer")
	}
}

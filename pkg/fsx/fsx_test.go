package fsx_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/echonote/notedb/pkg/fsx"
)

func Test_WriteFileAtomic_Creates_Parent_Directories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := fsx.NewReal()

	path := filepath.Join(dir, "sessions", "s1", "meta.json")

	err := fs.WriteFileAtomic(path, []byte(`{"id":"s1"}`))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if string(got) != `{"id":"s1"}` {
		t.Fatalf("content = %q", got)
	}
}

func Test_WriteFileAtomic_Replaces_Existing_Content(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := fsx.NewReal()
	path := filepath.Join(dir, "note.md")

	if err := fs.WriteFileAtomic(path, []byte("old")); err != nil {
		t.Fatalf("first write: %v", err)
	}

	if err := fs.WriteFileAtomic(path, []byte("new")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, _ := fs.ReadFile(path)
	if string(got) != "new" {
		t.Fatalf("content = %q, want new", got)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want 1", len(entries))
	}
}

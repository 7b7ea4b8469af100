// Package fsx provides the filesystem capability used by the persistence
// engine.
//
// The [FS] interface covers exactly the operations the engine performs so
// tests can substitute an implementation, and [Real] is the production
// implementation backed by the os package with atomic writes.
package fsx

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FS is the set of filesystem operations the engine needs.
type FS interface {
	// ReadFile reads an entire file. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic writes data via temp file + rename so a crash never
	// leaves a partially written file. Parent directories are created.
	WriteFileAtomic(path string, data []byte) error

	// ReadDir lists a directory, sorted by name. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// Stat stats a path. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// MkdirAll creates a directory and parents. See [os.MkdirAll].
	MkdirAll(path string) error

	// Remove removes a single file or empty directory. See [os.Remove].
	Remove(path string) error

	// RemoveAll removes a path recursively. See [os.RemoveAll].
	RemoveAll(path string) error

	// Rename moves a file or directory. See [os.Rename].
	Rename(oldPath, newPath string) error

	// WalkDir walks the tree rooted at root. See [fs.WalkDir].
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// Real is the production filesystem.
type Real struct{}

// NewReal returns the production filesystem.
func NewReal() *Real {
	return &Real{}
}

var _ FS = (*Real)(nil)

func (*Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (*Real) WriteFileAtomic(path string, data []byte) error {
	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", path, err)
	}

	return nil
}

func (*Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (*Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (*Real) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o750)
}

func (*Real) Remove(path string) error {
	return os.Remove(path)
}

func (*Real) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (*Real) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (*Real) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

package notedb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/tailscale/hujson"

	"github.com/echonote/notedb/pkg/fsx"
)

// Settings resolves the root data directory for persisters. Resolution may
// fail (settings file missing, malformed); that failure aborts the calling
// load or save, never the process.
type Settings interface {
	DataDir(ctx context.Context) (string, error)
}

// StaticSettings is a fixed data directory, used by tests and embedders
// that resolve configuration themselves.
type StaticSettings string

// DataDir returns the fixed directory.
func (s StaticSettings) DataDir(context.Context) (string, error) {
	if s == "" {
		return "", ErrDataDir
	}

	return string(s), nil
}

// FileSettings reads the data directory from a HuJSON settings file
// (JSON with comments and trailing commas permitted):
//
//	{
//	  // where the document tree lives
//	  "data_dir": "/home/user/notes",
//	}
type FileSettings struct {
	fs   fsx.FS
	path string
}

// NewFileSettings creates a provider reading path through fs.
func NewFileSettings(fs fsx.FS, path string) *FileSettings {
	if fs == nil {
		panic("fs is nil")
	}

	return &FileSettings{fs: fs, path: path}
}

type settingsFile struct {
	DataDir string `json:"data_dir"`
}

// DataDir parses the settings file on every call so external edits to the
// settings take effect without restart.
func (s *FileSettings) DataDir(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: settings file %s missing", ErrDataDir, s.path)
		}

		return "", fmt.Errorf("%w: read settings %s: %w", ErrDataDir, s.path, err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return "", fmt.Errorf("%w: parse settings %s: %w", ErrDataDir, s.path, err)
	}

	var cfg settingsFile

	err = json.Unmarshal(std, &cfg)
	if err != nil {
		return "", fmt.Errorf("%w: decode settings %s: %w", ErrDataDir, s.path, err)
	}

	if cfg.DataDir == "" {
		return "", fmt.Errorf("%w: settings %s has empty data_dir", ErrDataDir, s.path)
	}

	return cfg.DataDir, nil
}

package notedb

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/echonote/notedb/pkg/frontmatter"
	"github.com/echonote/notedb/pkg/fsx"
)

// Codec turns structured metadata plus a body into document text and back.
type Codec interface {
	Deserialize(raw string) (*frontmatter.Document, error)
	Serialize(meta map[string]any, body string) (string, error)
}

// MarkdownCodec is the markdown-with-YAML-frontmatter codec.
type MarkdownCodec struct{}

func (MarkdownCodec) Deserialize(raw string) (*frontmatter.Document, error) {
	return frontmatter.Deserialize(raw)
}

func (MarkdownCodec) Serialize(meta map[string]any, body string) (string, error) {
	return frontmatter.Serialize(meta, body)
}

// DocWrite pairs a document with its target path.
type DocWrite struct {
	Doc  frontmatter.Document
	Path string
}

type opKind uint8

const (
	opWriteDocs opKind = iota
	opWriteJSON
	opDelete
)

// Op is one disk operation produced by a save. Construct with
// [WriteDocumentBatch], [WriteJSON], or [Delete].
type Op struct {
	kind     opKind
	docs     []DocWrite
	jsonPath string
	jsonBody any
	paths    []string
}

// WriteDocumentBatch writes frontmatter documents to their paths.
func WriteDocumentBatch(items []DocWrite) Op {
	return Op{kind: opWriteDocs, docs: items}
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) Op {
	return Op{kind: opWriteJSON, jsonPath: path, jsonBody: v}
}

// Delete removes the given paths recursively.
func Delete(paths ...string) Op {
	return Op{kind: opDelete, paths: paths}
}

// DocIO performs bulk document reads, writes, and orphan cleanup.
//
// Per-file failures are isolated: a malformed or unreadable document is
// logged and skipped so sibling entities still load, and a failed write is
// logged while remaining writes proceed.
type DocIO struct {
	fs    fsx.FS
	codec Codec
	log   *slog.Logger
}

// NewDocIO creates a DocIO. A nil logger falls back to [slog.Default].
func NewDocIO(fs fsx.FS, codec Codec, log *slog.Logger) *DocIO {
	if fs == nil {
		panic("fs is nil")
	}

	if codec == nil {
		codec = MarkdownCodec{}
	}

	if log == nil {
		log = slog.Default()
	}

	return &DocIO{fs: fs, codec: codec, log: log}
}

// FS exposes the underlying filesystem for persister callbacks.
func (d *DocIO) FS() fsx.FS { return d.fs }

// ReadDocument reads and deserializes one document.
func (d *DocIO) ReadDocument(path string) (*frontmatter.Document, error) {
	raw, err := d.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := d.codec.Deserialize(string(raw))
	if err != nil {
		return nil, withEntity(err, "", path)
	}

	return doc, nil
}

// ReadDocumentBatch deserializes every file with ext in dir, keyed by file
// base name. A missing directory reads as empty. Unparsable files are
// logged and skipped.
func (d *DocIO) ReadDocumentBatch(dir, ext string) (map[string]*frontmatter.Document, error) {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return map[string]*frontmatter.Document{}, nil
		}

		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	out := make(map[string]*frontmatter.Document, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}

		p := path.Join(dir, name)

		doc, err := d.ReadDocument(p)
		if err != nil {
			d.log.Error("skipping unreadable document", "path", p, "err", err)
			continue
		}

		out[strings.TrimSuffix(name, ext)] = doc
	}

	return out, nil
}

// ReadJSON reads and decodes one JSON document into v.
func (d *DocIO) ReadJSON(path string, v any) error {
	raw, err := d.fs.ReadFile(path)
	if err != nil {
		return err
	}

	err = json.Unmarshal(raw, v)
	if err != nil {
		return withEntity(fmt.Errorf("decode json: %w", err), "", path)
	}

	return nil
}

// Apply executes save operations in order. Individual file failures are
// logged and do not stop remaining work; the joined error reports them.
func (d *DocIO) Apply(ops []Op) error {
	var errs []error

	record := func(path string, err error) {
		d.log.Error("apply operation failed", "path", path, "err", err)
		errs = append(errs, withEntity(err, "", path))
	}

	for _, op := range ops {
		switch op.kind {
		case opWriteDocs:
			for _, item := range op.docs {
				raw, err := d.codec.Serialize(item.Doc.Frontmatter, item.Doc.Content)
				if err != nil {
					record(item.Path, err)
					continue
				}

				err = d.fs.WriteFileAtomic(item.Path, []byte(raw))
				if err != nil {
					record(item.Path, err)
				}
			}

		case opWriteJSON:
			raw, err := json.MarshalIndent(op.jsonBody, "", "  ")
			if err != nil {
				record(op.jsonPath, err)
				continue
			}

			err = d.fs.WriteFileAtomic(op.jsonPath, append(raw, '\n'))
			if err != nil {
				record(op.jsonPath, err)
			}

		case opDelete:
			for _, p := range op.paths {
				err := d.fs.RemoveAll(p)
				if err != nil {
					record(p, err)
				}
			}
		}
	}

	return errors.Join(errs...)
}

// CleanupOrphanDirs removes marker-bearing directories below root whose
// name is not in keep. Entity directories may sit at any depth inside user
// folders, so the scan walks the tree; it never descends below a
// marker-bearing directory. Only directories containing marker are
// touched: the marker proves the directory was created by this persister,
// so unrelated user directories survive.
func (d *DocIO) CleanupOrphanDirs(root, marker string, keep map[string]struct{}) (int, error) {
	removed := 0

	err := d.fs.WalkDir(root, func(p string, entry iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}

			return err
		}

		if !entry.IsDir() || p == root {
			return nil
		}

		if _, err := d.fs.Stat(filepath.Join(p, marker)); err != nil {
			return nil
		}

		if _, keepIt := keep[entry.Name()]; keepIt {
			return iofs.SkipDir
		}

		err = d.fs.RemoveAll(p)
		if err != nil {
			d.log.Error("cleanup: remove orphan dir failed", "path", p, "err", err)
			return iofs.SkipDir
		}

		removed++

		return iofs.SkipDir
	})
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return removed, nil
		}

		return removed, fmt.Errorf("scan %s: %w", root, err)
	}

	return removed, nil
}

// CleanupOrphanFiles removes files with ext below root whose base name is
// not in keep. When marker is non-empty, only files whose own directory
// contains the marker are considered, so files in unrelated directories
// survive.
func (d *DocIO) CleanupOrphanFiles(root, marker, ext string, keep map[string]struct{}) (int, error) {
	removed := 0

	err := d.fs.WalkDir(root, func(p string, entry iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}

			return err
		}

		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			return nil
		}

		base := strings.TrimSuffix(entry.Name(), ext)
		if _, keepIt := keep[base]; keepIt {
			return nil
		}

		if marker != "" {
			if _, err := d.fs.Stat(filepath.Join(filepath.Dir(p), marker)); err != nil {
				return nil
			}
		}

		err = d.fs.Remove(p)
		if err != nil {
			d.log.Error("cleanup: remove orphan file failed", "path", p, "err", err)
			return nil
		}

		removed++

		return nil
	})
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return removed, nil
		}

		return removed, fmt.Errorf("scan %s: %w", root, err)
	}

	return removed, nil
}

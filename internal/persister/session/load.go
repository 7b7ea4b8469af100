package session

import (
	"context"
	"errors"
	iofs "io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

type entityDir struct {
	id     string
	folder string
	path   string
}

// findEntityDirs walks the sessions tree. A directory counts as a session
// when it contains the marker file; anything above one is a user folder,
// and the walk does not descend below one.
func findEntityDirs(env notedb.Env) ([]entityDir, error) {
	root := notedb.EntityDir(env.DataDir, Dir)
	fs := env.IO.FS()

	var dirs []entityDir

	err := fs.WalkDir(root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}

			return err
		}

		if !d.IsDir() || p == root {
			return nil
		}

		if _, err := fs.Stat(filepath.Join(p, MetaFile)); err != nil {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}

		rel = filepath.ToSlash(rel)

		dirs = append(dirs, entityDir{
			id:     path.Base(rel),
			folder: notedb.ParentFolderPath(rel),
			path:   p,
		})

		return iofs.SkipDir
	})
	if err != nil {
		return nil, err
	}

	return dirs, nil
}

func emptyTables() store.Tables {
	out := make(store.Tables, len(Tables))
	for _, spec := range Tables {
		out[spec.Name] = store.Table{}
	}

	return out
}

func loadAll(ctx context.Context, env notedb.Env) (store.Tables, error) {
	dirs, err := findEntityDirs(env)
	if err != nil {
		return nil, err
	}

	out := emptyTables()

	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := loadEntity(env, d, out)
		if err != nil {
			env.Log.Error("skipping unreadable session", "session", d.id, "err", err)
		}
	}

	return out, nil
}

func loadSingle(ctx context.Context, env notedb.Env, id string) (store.Tables, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	dirs, err := findEntityDirs(env)
	if err != nil {
		return nil, false, err
	}

	for _, d := range dirs {
		if d.id != id {
			continue
		}

		out := emptyTables()

		err := loadEntity(env, d, out)
		if err != nil {
			return nil, false, err
		}

		return out, true, nil
	}

	return nil, false, nil
}

// loadEntity reads one session directory into out. The marker is
// authoritative; a missing memo or transcript reads as empty so a torn
// write never blocks the session from loading.
func loadEntity(env notedb.Env, dir entityDir, out store.Tables) error {
	var meta metaFile

	err := env.IO.ReadJSON(filepath.Join(dir.path, MetaFile), &meta)
	if err != nil {
		return err
	}

	rawMD := ""

	memo, err := env.IO.ReadDocument(filepath.Join(dir.path, MemoFile))

	switch {
	case errors.Is(err, iofs.ErrNotExist):
	case err != nil:
		env.Log.Error("skipping unreadable memo", "session", dir.id, "err", err)
	default:
		rawMD = memo.Content
	}

	out["sessions"][dir.id] = store.Row{
		"title":      meta.Session.Title,
		"created_at": meta.Session.CreatedAt,
		"user_id":    meta.Session.UserID,
		"event_id":   meta.Session.EventID,
		"folder_id":  dir.folder,
		"raw_md":     rawMD,
	}

	for _, p := range meta.Participants {
		if p.ID == "" {
			continue
		}

		out["mapping_session_participant"][p.ID] = store.Row{
			"session_id": dir.id,
			"human_id":   p.HumanID,
		}
	}

	for _, tag := range meta.Tags {
		if tag.ID == "" {
			continue
		}

		out["tags"][tag.ID] = store.Row{
			"name":    tag.Name,
			"user_id": tag.UserID,
		}
	}

	for _, link := range meta.TagLinks {
		if link.ID == "" {
			continue
		}

		out["mapping_tag_session"][link.ID] = store.Row{
			"session_id": dir.id,
			"tag_id":     link.TagID,
		}
	}

	var tf transcriptFile

	err = env.IO.ReadJSON(filepath.Join(dir.path, TranscriptFile), &tf)

	switch {
	case errors.Is(err, iofs.ErrNotExist):
	case err != nil:
		env.Log.Error("skipping unreadable transcript", "session", dir.id, "err", err)
	default:
		for _, tr := range tf.Transcripts {
			if tr.ID == "" {
				continue
			}

			out["transcripts"][tr.ID] = store.Row{
				"session_id": dir.id,
				"content":    tr.Content,
			}
		}
	}

	return loadNotes(env, dir, out)
}

func loadNotes(env notedb.Env, dir entityDir, out store.Tables) error {
	entries, err := env.IO.FS().ReadDir(dir.path)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, NoteExt) {
			continue
		}

		p := filepath.Join(dir.path, name)

		doc, err := env.IO.ReadDocument(p)
		if err != nil {
			env.Log.Error("skipping unreadable note", "path", p, "err", err)
			continue
		}

		// A note without identity cannot be placed in the store.
		noteID := doc.GetString("id")
		if noteID == "" || doc.GetString("session_id") == "" {
			continue
		}

		out["enhanced_notes"][noteID] = store.Row{
			"session_id":  doc.GetString("session_id"),
			"title":       doc.GetString("title"),
			"template_id": doc.GetString("template_id"),
			"position":    doc.GetInt("position"),
			"user_id":     doc.GetString("user_id"),
			"content":     doc.Content,
		}
	}

	return nil
}

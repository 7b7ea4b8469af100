package session

import (
	"path/filepath"
	"sort"

	"github.com/echonote/notedb/pkg/frontmatter"
	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

func buildSaveOps(env notedb.Env, tables store.Tables, scope map[string]struct{}) []notedb.Op {
	sessions := tables["sessions"]

	ids := make([]string, 0, len(sessions))

	for id := range sessions {
		if scope != nil {
			if _, ok := scope[id]; !ok {
				continue
			}
		}

		ids = append(ids, id)
	}

	sort.Strings(ids)

	var (
		ops  []notedb.Op
		docs []notedb.DocWrite
	)

	for _, id := range ids {
		row := sessions[id]
		dir := notedb.EntityDirPath(env.DataDir, Dir, row.String("folder_id"), id)

		ops = append(ops, notedb.WriteJSON(filepath.Join(dir, MetaFile), buildMeta(tables, id, row)))

		docs = append(docs, notedb.DocWrite{
			Doc: frontmatter.Document{
				Frontmatter: map[string]any{"id": id, "session_id": id},
				Content:     row.String("raw_md"),
			},
			Path: filepath.Join(dir, MemoFile),
		})

		if tf, ok := buildTranscript(tables, id); ok {
			ops = append(ops, notedb.WriteJSON(filepath.Join(dir, TranscriptFile), tf))
		}

		docs = append(docs, noteDocs(tables, id, dir)...)
	}

	if len(docs) > 0 {
		ops = append(ops, notedb.WriteDocumentBatch(docs))
	}

	return ops
}

func noteDocs(tables store.Tables, sessionID, dir string) []notedb.DocWrite {
	notes := tables["enhanced_notes"]

	ids := make([]string, 0, len(notes))

	for id, note := range notes {
		if note.String("session_id") == sessionID {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	out := make([]notedb.DocWrite, 0, len(ids))

	for _, noteID := range ids {
		note := notes[noteID]

		out = append(out, notedb.DocWrite{
			Doc: frontmatter.Document{
				Frontmatter: map[string]any{
					"id":          noteID,
					"session_id":  sessionID,
					"title":       note.String("title"),
					"template_id": note.String("template_id"),
					"position":    note.Int("position"),
					"user_id":     note.String("user_id"),
				},
				Content: note.String("content"),
			},
			Path: filepath.Join(dir, noteID+NoteExt),
		})
	}

	return out
}

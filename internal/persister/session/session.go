// Package session persists meeting sessions as one directory per session
// under the sessions tree, optionally nested inside user folders.
//
// Each session directory holds meta.json (the directory marker, carrying
// the session row plus its participants and tags), memo.md (the user's
// running note), transcript.json, and one <note-id>.note.md document per
// enhanced note. The folder a session lives in is not stored in any file;
// it is derived from the directory's location on load.
package session

import (
	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

// Dir is the per-kind directory under the data dir.
const Dir = "sessions"

const (
	// MetaFile marks a directory as session-owned.
	MetaFile = "meta.json"

	// MemoFile holds the session memo as a frontmatter document.
	MemoFile = "memo.md"

	// TranscriptFile holds the session's transcripts.
	TranscriptFile = "transcript.json"

	// NoteExt is the extension of enhanced note documents.
	NoteExt = ".note.md"
)

// Tables is the session table family. The tags table has no foreign key:
// tags are shared across sessions, so a tag row alone never identifies
// which session to rewrite.
var Tables = []notedb.TableSpec{
	{Name: "sessions", Primary: true},
	{Name: "mapping_session_participant", ForeignKey: "session_id"},
	{Name: "tags"},
	{Name: "mapping_tag_session", ForeignKey: "session_id"},
	{Name: "transcripts", ForeignKey: "session_id"},
	{Name: "enhanced_notes", ForeignKey: "session_id"},
}

// New constructs the sessions persister.
func New(
	st *store.Store,
	settings notedb.Settings,
	docIO *notedb.DocIO,
	notifier notedb.Notifier,
	clock clockwork.Clock,
) *notedb.MultiDirPersister {
	return notedb.NewMultiDir(st, settings, docIO, notifier, clock, notedb.MultiDirConfig{
		Label:        "sessions",
		Dir:          Dir,
		Tables:       Tables,
		LoadAll:      loadAll,
		LoadSingle:   loadSingle,
		BuildSaveOps: buildSaveOps,
		Cleanup:      cleanup,
	})
}

func cleanup(tables store.Tables) []notedb.CleanupTask {
	return []notedb.CleanupTask{
		{
			Kind:   notedb.CleanupDirs,
			Marker: MetaFile,
			Keep:   tableIDs(tables["sessions"]),
		},
		{
			Kind:   notedb.CleanupFilesRecursive,
			Marker: MetaFile,
			Ext:    NoteExt,
			Keep:   tableIDs(tables["enhanced_notes"]),
		},
	}
}

func tableIDs(t store.Table) map[string]struct{} {
	out := make(map[string]struct{}, len(t))
	for id := range t {
		out[id] = struct{}{}
	}

	return out
}

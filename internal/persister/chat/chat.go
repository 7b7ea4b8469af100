// Package chat persists chat groups as one directory per group under the
// chats tree. Each group directory holds a single messages.json carrying
// the group row and its messages; the file doubles as the directory
// marker for orphan cleanup.
package chat

import (
	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

// Dir is the per-kind directory under the data dir.
const Dir = "chats"

// MessagesFile marks a directory as chat-owned and holds its content.
const MessagesFile = "messages.json"

// Tables is the chat table family.
var Tables = []notedb.TableSpec{
	{Name: "chat_groups", Primary: true},
	{Name: "chat_messages", ForeignKey: "chat_group_id"},
}

// New constructs the chats persister.
func New(
	st *store.Store,
	settings notedb.Settings,
	docIO *notedb.DocIO,
	notifier notedb.Notifier,
	clock clockwork.Clock,
) *notedb.MultiDirPersister {
	return notedb.NewMultiDir(st, settings, docIO, notifier, clock, notedb.MultiDirConfig{
		Label:        "chats",
		Dir:          Dir,
		Tables:       Tables,
		LoadAll:      loadAll,
		LoadSingle:   loadSingle,
		BuildSaveOps: buildSaveOps,
		Cleanup:      cleanup,
	})
}

func cleanup(tables store.Tables) []notedb.CleanupTask {
	keep := make(map[string]struct{}, len(tables["chat_groups"]))
	for id := range tables["chat_groups"] {
		keep[id] = struct{}{}
	}

	return []notedb.CleanupTask{
		{Kind: notedb.CleanupDirs, Marker: MessagesFile, Keep: keep},
	}
}

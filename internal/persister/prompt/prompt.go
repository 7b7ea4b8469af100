// Package prompt persists the prompts table as a directory of markdown
// documents. The prompt text is the document body; the frontmatter holds
// the owner and the task the prompt customizes.
package prompt

import (
	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/frontmatter"
	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

// Dir is the per-kind directory under the data dir.
const Dir = "prompts"

// New constructs the prompts persister.
func New(
	st *store.Store,
	settings notedb.Settings,
	docIO *notedb.DocIO,
	notifier notedb.Notifier,
	clock clockwork.Clock,
) *notedb.MarkdownDirPersister {
	return notedb.NewMarkdownDir(st, settings, docIO, notifier, clock, notedb.MarkdownDirConfig{
		Table:        "prompts",
		Dir:          Dir,
		Label:        "prompts",
		ToDocument:   toDocument,
		FromDocument: fromDocument,
	})
}

func fromDocument(doc *frontmatter.Document) store.Row {
	return store.Row{
		"user_id":   doc.GetString("user_id"),
		"task_type": doc.GetString("task_type"),
		"content":   doc.Content,
	}
}

func toDocument(row store.Row) (map[string]any, string) {
	meta := map[string]any{
		"user_id":   row.String("user_id"),
		"task_type": row.String("task_type"),
	}

	return meta, row.String("content")
}

// Package organization persists the organizations table as a directory
// of markdown documents. Organizations carry no free text, so the body
// is always empty.
package organization

import (
	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/frontmatter"
	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

// Dir is the per-kind directory under the data dir.
const Dir = "organizations"

// New constructs the organizations persister.
func New(
	st *store.Store,
	settings notedb.Settings,
	docIO *notedb.DocIO,
	notifier notedb.Notifier,
	clock clockwork.Clock,
) *notedb.MarkdownDirPersister {
	return notedb.NewMarkdownDir(st, settings, docIO, notifier, clock, notedb.MarkdownDirConfig{
		Table:        "organizations",
		Dir:          Dir,
		Label:        "organizations",
		ToDocument:   toDocument,
		FromDocument: fromDocument,
	})
}

func fromDocument(doc *frontmatter.Document) store.Row {
	return store.Row{
		"user_id": doc.GetString("user_id"),
		"name":    doc.GetString("name"),
	}
}

func toDocument(row store.Row) (map[string]any, string) {
	return map[string]any{
		"name":    row.String("name"),
		"user_id": row.String("user_id"),
	}, ""
}

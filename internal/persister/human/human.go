// Package human persists the humans table as a directory of markdown
// documents, one file per person, with contact fields in the frontmatter
// and the free-text memo as the body.
package human

import (
	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

// Dir is the per-kind directory under the data dir.
const Dir = "humans"

// New constructs the humans persister.
func New(
	st *store.Store,
	settings notedb.Settings,
	docIO *notedb.DocIO,
	notifier notedb.Notifier,
	clock clockwork.Clock,
) *notedb.MarkdownDirPersister {
	return notedb.NewMarkdownDir(st, settings, docIO, notifier, clock, notedb.MarkdownDirConfig{
		Table:        "humans",
		Dir:          Dir,
		Label:        "humans",
		ToDocument:   toDocument,
		FromDocument: fromDocument,
	})
}

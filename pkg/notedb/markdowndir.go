package notedb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/frontmatter"
	"github.com/echonote/notedb/pkg/store"
)

// MarkdownDirConfig configures the single-table-per-file-in-directory
// shape: a directory of frontmatter documents, one file per row of one
// primary table. Format details stay in the two transform callbacks so
// the persister itself is format-agnostic.
type MarkdownDirConfig struct {
	// Table is the primary store table (row id == entity id).
	Table string

	// Dir is the per-kind directory name under the data dir.
	Dir string

	// Label names the persister in logs.
	Label string

	// Ext is the document extension. Default ".md".
	Ext string

	// ToDocument converts a row to frontmatter metadata plus body.
	ToDocument func(row store.Row) (map[string]any, string)

	// FromDocument converts a parsed document back to a row.
	FromDocument func(doc *frontmatter.Document) store.Row

	// Debounce overrides the file listener window. Default
	// [DefaultDebounce].
	Debounce time.Duration
}

// MarkdownDirPersister is the single-file-per-entity persister shape.
type MarkdownDirPersister struct {
	cfg      MarkdownDirConfig
	st       *store.Store
	settings Settings
	io       *DocIO
	log      *slog.Logger

	handle *Handle

	// applying suppresses auto-save while the persister itself writes
	// loaded rows into the store.
	applying atomic.Bool

	// loaded gates cleanup: orphan deletion must never run against a
	// keep-set that was not derived from a completed load.
	loaded atomic.Bool
}

var _ Persister = (*MarkdownDirPersister)(nil)

// NewMarkdownDir creates the persister and, when notifier is non-nil,
// registers a debounced entity-mode file listener that reloads entities
// changed on disk. Destroy removes the listener.
func NewMarkdownDir(
	st *store.Store,
	settings Settings,
	docIO *DocIO,
	notifier Notifier,
	clock clockwork.Clock,
	cfg MarkdownDirConfig,
) *MarkdownDirPersister {
	if cfg.Ext == "" {
		cfg.Ext = ".md"
	}

	if cfg.Label == "" {
		cfg.Label = cfg.Table
	}

	p := &MarkdownDirPersister{
		cfg:      cfg,
		st:       st,
		settings: settings,
		io:       docIO,
		log:      slog.Default().With("persister", cfg.Label),
	}

	if notifier != nil {
		p.handle = ListenEntities(notifier, clock, EntityListenerConfig{
			Label:    cfg.Label,
			ParseID:  func(path string) (string, bool) { return ParseEntityID(path, cfg.Dir, cfg.Ext) },
			Debounce: cfg.Debounce,
			Log:      p.log,
		}, func(info EntityInfo) {
			err := p.LoadSingle(context.Background(), info.EntityID)
			if err != nil {
				p.log.Error("reload after file change failed", "entity", info.EntityID, "err", err)
			}
		})
	}

	return p
}

// Load replaces the table with the full on-disk directory content.
func (p *MarkdownDirPersister) Load(ctx context.Context) error {
	dataDir, err := p.settings.DataDir(ctx)
	if err != nil {
		return fmt.Errorf("%s: load: %w", p.cfg.Label, err)
	}

	docs, err := p.io.ReadDocumentBatch(EntityDir(dataDir, p.cfg.Dir), p.cfg.Ext)
	if err != nil {
		return fmt.Errorf("%s: load: %w", p.cfg.Label, err)
	}

	rows := make(map[string]store.Row, len(docs))
	for id, doc := range docs {
		rows[id] = p.cfg.FromDocument(doc)
	}

	p.apply(func(tx *store.Tx) {
		for _, id := range tx.RowIDs(p.cfg.Table) {
			if _, ok := rows[id]; !ok {
				tx.DelRow(p.cfg.Table, id)
			}
		}

		for id, row := range rows {
			tx.SetRow(p.cfg.Table, id, row)
		}
	})

	p.loaded.Store(true)

	return nil
}

// LoadSingle refreshes one entity from its file. A missing file deletes
// the row; an unparsable file is logged and leaves the row untouched.
func (p *MarkdownDirPersister) LoadSingle(ctx context.Context, id string) error {
	dataDir, err := p.settings.DataDir(ctx)
	if err != nil {
		return fmt.Errorf("%s: load %s: %w", p.cfg.Label, id, err)
	}

	path := EntityFilePath(dataDir, p.cfg.Dir, id, p.cfg.Ext)

	doc, err := p.io.ReadDocument(path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		p.apply(func(tx *store.Tx) { tx.DelRow(p.cfg.Table, id) })
		return nil

	case err != nil:
		p.log.Error("skipping unreadable document", "entity", id, "path", path, "err", err)
		return nil
	}

	row := p.cfg.FromDocument(doc)

	p.apply(func(tx *store.Tx) { tx.SetRow(p.cfg.Table, id, row) })

	return nil
}

// Save writes rows to disk, narrowed by the change set when resolvable,
// then removes orphaned documents for rows no longer in the store.
func (p *MarkdownDirPersister) Save(ctx context.Context, changed store.ChangedTables) error {
	if p.applying.Load() {
		return nil
	}

	dataDir, err := p.settings.DataDir(ctx)
	if err != nil {
		return fmt.Errorf("%s: save: %w", p.cfg.Label, err)
	}

	table := p.st.GetTable(p.cfg.Table)

	var scope map[string]struct{}

	if changed != nil {
		specs := []TableSpec{{Name: p.cfg.Table, Primary: true}}

		result := ResolveChanges(store.Tables{p.cfg.Table: table}, changed, specs)
		if result == nil {
			return nil
		}

		if !result.HasUnresolvedDeletions {
			scope = result.AffectedIDs
		}
	}

	var items []DocWrite

	for id, row := range table {
		if scope != nil {
			if _, ok := scope[id]; !ok {
				continue
			}
		}

		meta, body := p.cfg.ToDocument(row)

		items = append(items, DocWrite{
			Doc:  frontmatter.Document{Frontmatter: meta, Content: body},
			Path: EntityFilePath(dataDir, p.cfg.Dir, id, p.cfg.Ext),
		})
	}

	err = p.io.Apply([]Op{WriteDocumentBatch(items)})
	if err != nil {
		// Individual failures are already logged; skip cleanup so a
		// half-written directory is not pruned against fresh state.
		return nil
	}

	if p.loaded.Load() {
		keep := make(map[string]struct{}, len(table))
		for id := range table {
			keep[id] = struct{}{}
		}

		_, err = p.io.CleanupOrphanFiles(EntityDir(dataDir, p.cfg.Dir), "", p.cfg.Ext, keep)
		if err != nil {
			p.log.Error("cleanup failed", "err", err)
		}
	}

	return nil
}

// Destroy removes the file listener.
func (p *MarkdownDirPersister) Destroy() {
	if p.handle != nil {
		p.handle.Close()
	}
}

func (p *MarkdownDirPersister) apply(fn func(tx *store.Tx)) {
	p.applying.Store(true)
	defer p.applying.Store(false)

	p.st.Transaction(fn)
}

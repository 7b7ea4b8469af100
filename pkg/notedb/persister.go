package notedb

import (
	"context"
	"log/slog"

	"github.com/echonote/notedb/pkg/store"
)

// Persister keeps one entity kind in sync between store and disk.
//
// Both shapes share this contract: [MarkdownDirPersister] for
// one-frontmatter-file-per-entity kinds and [MultiDirPersister] for
// one-subdirectory-per-entity kinds. Each shape is constructed from its
// own config type; there is no structural sniffing of a shared config.
type Persister interface {
	// Load replaces the persister's table family in the store with the
	// on-disk state, in one transaction.
	Load(ctx context.Context) error

	// LoadSingle refreshes one entity from disk. A missing on-disk
	// entity deletes the corresponding rows. Reloading unchanged content
	// is observationally a no-op.
	LoadSingle(ctx context.Context, id string) error

	// Save writes store state to disk. A non-nil change set narrows the
	// write to affected entities when every change can be attributed to
	// an owner; otherwise the full primary table is processed. A nil
	// change set means "save everything".
	Save(ctx context.Context, changed store.ChangedTables) error

	// Destroy tears down the persister's file listener. In-flight loads
	// and saves are not aborted.
	Destroy()
}

// BindAutoSave subscribes p to store changes so every committed
// transaction flows to disk with its change set. Returns the unsubscribe
// func. Changes applied by the persister's own loads do not re-trigger a
// save.
//
// Assumes a single mutating goroutine: the load-suppression flag is
// persister-wide, so a transaction committed from another goroutine while
// a load is applying would not be saved.
func BindAutoSave(st *store.Store, p Persister, log *slog.Logger) func() {
	if log == nil {
		log = slog.Default()
	}

	return st.AddListener(func(changed store.ChangedTables) {
		err := p.Save(context.Background(), changed)
		if err != nil {
			log.Error("auto-save failed", "err", err)
		}
	})
}

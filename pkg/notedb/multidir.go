package notedb

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/store"
)

// Env carries the resolved per-call environment into multi-dir persister
// callbacks. It replaces any ambient configuration: callbacks receive
// everything they need explicitly.
type Env struct {
	// DataDir is the resolved root data directory.
	DataDir string

	// IO performs document reads and writes.
	IO *DocIO

	// Log is scoped to the owning persister.
	Log *slog.Logger
}

// CleanupKind selects an orphan-removal policy.
type CleanupKind uint8

const (
	// CleanupDirs walks below the kind directory and removes
	// marker-bearing directories whose name is not kept, at any folder
	// depth. The walk never descends below a marker-bearing directory.
	CleanupDirs CleanupKind = iota

	// CleanupFilesRecursive scans below the kind directory for files
	// with Ext whose base name is not kept, gated on the marker being
	// present at the file's own level.
	CleanupFilesRecursive
)

// CleanupTask is one orphan-removal pass scheduled after a save.
type CleanupTask struct {
	Kind   CleanupKind
	Marker string
	Ext    string
	Keep   map[string]struct{}
}

// MultiDirConfig configures the multi-table-per-directory-of-directories
// shape: one subdirectory per entity holding a marker/metadata file plus
// auxiliary files, backed by a primary table and child tables.
type MultiDirConfig struct {
	// Label names the persister in logs.
	Label string

	// Dir is the per-kind directory name under the data dir.
	Dir string

	// Tables declares the persister's table family. Exactly one entry
	// must be Primary.
	Tables []TableSpec

	// ParseID resolves a changed path to the owning entity id. Default:
	// [ParseOwnerDirID] against Dir.
	ParseID func(path string) (string, bool)

	// Debounce overrides the file listener window.
	Debounce time.Duration

	// LoadAll reads every entity from disk and returns the full content
	// of the table family.
	LoadAll func(ctx context.Context, env Env) (store.Tables, error)

	// LoadSingle reads one entity. found=false means no on-disk entity,
	// which deletes its rows from the store.
	LoadSingle func(ctx context.Context, env Env, id string) (content store.Tables, found bool, err error)

	// BuildSaveOps turns the current family tables into disk operations.
	// A non-nil scope restricts writes to those entity ids.
	BuildSaveOps func(env Env, tables store.Tables, scope map[string]struct{}) []Op

	// Cleanup schedules orphan-removal passes from the current family
	// tables. Runs only after a completed load and a fully successful
	// save.
	Cleanup func(tables store.Tables) []CleanupTask
}

// MultiDirPersister is the directory-per-entity persister shape.
type MultiDirPersister struct {
	cfg      MultiDirConfig
	st       *store.Store
	settings Settings
	io       *DocIO
	log      *slog.Logger

	handle   *Handle
	applying atomic.Bool
	loaded   atomic.Bool
}

var _ Persister = (*MultiDirPersister)(nil)

// NewMultiDir creates the persister and, when notifier is non-nil,
// registers a debounced entity-mode file listener reloading entities
// whose files change on disk.
func NewMultiDir(
	st *store.Store,
	settings Settings,
	docIO *DocIO,
	notifier Notifier,
	clock clockwork.Clock,
	cfg MultiDirConfig,
) *MultiDirPersister {
	if cfg.Label == "" {
		cfg.Label = cfg.Dir
	}

	if cfg.ParseID == nil {
		dir := cfg.Dir
		cfg.ParseID = func(path string) (string, bool) { return ParseOwnerDirID(path, dir) }
	}

	p := &MultiDirPersister{
		cfg:      cfg,
		st:       st,
		settings: settings,
		io:       docIO,
		log:      slog.Default().With("persister", cfg.Label),
	}

	if notifier != nil {
		p.handle = ListenEntities(notifier, clock, EntityListenerConfig{
			Label:    cfg.Label,
			ParseID:  cfg.ParseID,
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

func (p *MultiDirPersister) env(dataDir string) Env {
	return Env{DataDir: dataDir, IO: p.io, Log: p.log}
}

// Load replaces the whole table family with the on-disk state.
func (p *MultiDirPersister) Load(ctx context.Context) error {
	dataDir, err := p.settings.DataDir(ctx)
	if err != nil {
		return fmt.Errorf("%s: load: %w", p.cfg.Label, err)
	}

	content, err := p.cfg.LoadAll(ctx, p.env(dataDir))
	if err != nil {
		return fmt.Errorf("%s: load: %w", p.cfg.Label, err)
	}

	p.apply(func(tx *store.Tx) {
		for _, spec := range p.cfg.Tables {
			loadedRows := content[spec.Name]

			for _, id := range tx.RowIDs(spec.Name) {
				if _, ok := loadedRows[id]; !ok {
					tx.DelRow(spec.Name, id)
				}
			}

			for id, row := range loadedRows {
				tx.SetRow(spec.Name, id, row)
			}
		}
	})

	p.loaded.Store(true)

	return nil
}

// LoadSingle refreshes one entity and its child rows from disk.
//
// Child rows referencing the entity that no longer appear on disk are
// deleted; rows of tables without a foreign key are merged, never pruned,
// since their ownership cannot be established from one entity.
func (p *MultiDirPersister) LoadSingle(ctx context.Context, id string) error {
	dataDir, err := p.settings.DataDir(ctx)
	if err != nil {
		return fmt.Errorf("%s: load %s: %w", p.cfg.Label, id, err)
	}

	content, found, err := p.cfg.LoadSingle(ctx, p.env(dataDir), id)
	if err != nil {
		return fmt.Errorf("%s: load %s: %w", p.cfg.Label, id, err)
	}

	p.apply(func(tx *store.Tx) {
		for _, spec := range p.cfg.Tables {
			loadedRows := content[spec.Name]

			switch {
			case spec.Primary:
				if !found {
					tx.DelRow(spec.Name, id)
					continue
				}

				for rowID, row := range loadedRows {
					tx.SetRow(spec.Name, rowID, row)
				}

			case spec.ForeignKey != "":
				for _, rowID := range tx.RowIDs(spec.Name) {
					if _, stillThere := loadedRows[rowID]; stillThere {
						continue
					}

					owner, _ := tx.GetCell(spec.Name, rowID, spec.ForeignKey)
					if owner == id {
						tx.DelRow(spec.Name, rowID)
					}
				}

				for rowID, row := range loadedRows {
					tx.SetRow(spec.Name, rowID, row)
				}

			default:
				for rowID, row := range loadedRows {
					tx.SetRow(spec.Name, rowID, row)
				}
			}
		}
	})

	return nil
}

// Save writes store state to disk through the op builder, narrowed by the
// change set when every change resolves to an owner, then runs cleanup.
func (p *MultiDirPersister) Save(ctx context.Context, changed store.ChangedTables) error {
	if p.applying.Load() {
		return nil
	}

	dataDir, err := p.settings.DataDir(ctx)
	if err != nil {
		return fmt.Errorf("%s: save: %w", p.cfg.Label, err)
	}

	tables := p.familyTables()

	var scope map[string]struct{}

	if changed != nil {
		result := ResolveChanges(tables, changed, p.cfg.Tables)
		if result == nil {
			return nil
		}

		if !result.HasUnresolvedDeletions {
			scope = result.AffectedIDs
		}
	}

	ops := p.cfg.BuildSaveOps(p.env(dataDir), tables, scope)

	err = p.io.Apply(ops)
	if err != nil {
		// Per-file failures are logged in Apply; skip cleanup rather
		// than prune against a directory in unknown state.
		return nil
	}

	if p.loaded.Load() && p.cfg.Cleanup != nil {
		root := EntityDir(dataDir, p.cfg.Dir)

		for _, task := range p.cfg.Cleanup(tables) {
			var cleanupErr error

			switch task.Kind {
			case CleanupDirs:
				_, cleanupErr = p.io.CleanupOrphanDirs(root, task.Marker, task.Keep)
			case CleanupFilesRecursive:
				_, cleanupErr = p.io.CleanupOrphanFiles(root, task.Marker, task.Ext, task.Keep)
			}

			if cleanupErr != nil {
				p.log.Error("cleanup failed", "err", cleanupErr)
			}
		}
	}

	return nil
}

// Destroy removes the file listener.
func (p *MultiDirPersister) Destroy() {
	if p.handle != nil {
		p.handle.Close()
	}
}

func (p *MultiDirPersister) familyTables() store.Tables {
	out := make(store.Tables, len(p.cfg.Tables))
	for _, spec := range p.cfg.Tables {
		out[spec.Name] = p.st.GetTable(spec.Name)
	}

	return out
}

func (p *MultiDirPersister) apply(fn func(tx *store.Tx)) {
	p.applying.Store(true)
	defer p.applying.Store(false)

	p.st.Transaction(fn)
}

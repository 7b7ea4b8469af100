package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/pkg/fsx"
	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

// Ops are the session operations that touch both the store and the
// directory layout. Directory moves happen before the store mutation so
// the auto-saved state lands in the new location.
type Ops struct {
	Store    *store.Store
	Settings notedb.Settings
	FS       fsx.FS

	// UserID stamps rows created through these ops.
	UserID string

	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Create inserts a new empty session and returns its id.
func (o *Ops) Create(title string) string {
	id := uuid.NewString()

	o.Store.SetRow("sessions", id, store.Row{
		"title":      title,
		"created_at": o.now().UTC().Format(time.RFC3339),
		"user_id":    o.UserID,
		"event_id":   "",
		"folder_id":  "",
		"raw_md":     "",
	})

	return id
}

// MoveToFolder relocates a session's directory to targetFolder and
// updates its folder cell. An empty targetFolder moves it to the root of
// the sessions tree.
func (o *Ops) MoveToFolder(ctx context.Context, sessionID, targetFolder string) error {
	row, ok := o.Store.GetRow("sessions", sessionID)
	if !ok {
		return fmt.Errorf("move session %s: no such session", sessionID)
	}

	dataDir, err := o.Settings.DataDir(ctx)
	if err != nil {
		return fmt.Errorf("move session %s: %w", sessionID, err)
	}

	oldDir := notedb.EntityDirPath(dataDir, Dir, row.String("folder_id"), sessionID)
	newDir := notedb.EntityDirPath(dataDir, Dir, targetFolder, sessionID)

	if oldDir == newDir {
		return nil
	}

	err = o.FS.MkdirAll(filepath.Dir(newDir))
	if err != nil {
		return fmt.Errorf("move session %s: %w", sessionID, err)
	}

	err = o.FS.Rename(oldDir, newDir)
	if err != nil {
		return fmt.Errorf("move session %s: %w", sessionID, err)
	}

	o.Store.SetCell("sessions", sessionID, "folder_id", targetFolder)

	return nil
}

// RenameFolder renames a folder in the sessions tree and rewrites the
// folder cell of every session inside it, in one transaction.
//
// Only exact matches and paths below oldPath are rewritten: renaming
// "work" must leave a sibling "work2" alone.
func (o *Ops) RenameFolder(ctx context.Context, oldPath, newPath string) error {
	if oldPath == "" || newPath == "" {
		return fmt.Errorf("rename folder: empty path")
	}

	if oldPath == newPath {
		return nil
	}

	dataDir, err := o.Settings.DataDir(ctx)
	if err != nil {
		return fmt.Errorf("rename folder %s: %w", oldPath, err)
	}

	root := notedb.EntityDir(dataDir, Dir)
	oldDir := filepath.Join(root, filepath.FromSlash(oldPath))
	newDir := filepath.Join(root, filepath.FromSlash(newPath))

	err = o.FS.MkdirAll(filepath.Dir(newDir))
	if err != nil {
		return fmt.Errorf("rename folder %s: %w", oldPath, err)
	}

	err = o.FS.Rename(oldDir, newDir)
	if err != nil {
		return fmt.Errorf("rename folder %s: %w", oldPath, err)
	}

	prefix := oldPath + "/"

	o.Store.Transaction(func(tx *store.Tx) {
		for _, id := range tx.RowIDs("sessions") {
			v, _ := tx.GetCell("sessions", id, "folder_id")

			folder, ok := v.(string)
			if !ok {
				continue
			}

			switch {
			case folder == oldPath:
				tx.SetCell("sessions", id, "folder_id", newPath)
			case strings.HasPrefix(folder, prefix):
				tx.SetCell("sessions", id, "folder_id", newPath+folder[len(oldPath):])
			}
		}
	})

	return nil
}

func (o *Ops) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}

	return o.Clock.Now()
}

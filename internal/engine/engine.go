// Package engine assembles the full persistence stack: one store, one
// persister per entity kind, auto-save bindings, and the file listeners
// that pull external edits back in.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/echonote/notedb/internal/persister/chat"
	"github.com/echonote/notedb/internal/persister/human"
	"github.com/echonote/notedb/internal/persister/organization"
	"github.com/echonote/notedb/internal/persister/prompt"
	"github.com/echonote/notedb/internal/persister/session"
	"github.com/echonote/notedb/pkg/fsx"
	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

// Config wires the engine's collaborators. Zero values get production
// defaults; tests substitute fakes.
type Config struct {
	// Settings resolves the data dir. Required.
	Settings notedb.Settings

	// FS defaults to the real filesystem.
	FS fsx.FS

	// Notifier feeds file change events. Nil disables file watching;
	// persisters then only see changes through explicit loads.
	Notifier notedb.Notifier

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	// Log defaults to slog.Default.
	Log *slog.Logger

	// UserID stamps rows created through the ops.
	UserID string
}

// Engine is the assembled persistence stack.
type Engine struct {
	Store    *store.Store
	Sessions *session.Ops
	Chats    *chat.Ops

	persisters  []notedb.Persister
	unbinds     []func()
	folderWatch *notedb.Handle
}

// Open builds the stack. Call Load to populate the store, and Close to
// tear listeners down.
func Open(cfg Config) *Engine {
	if cfg.Settings == nil {
		panic("settings is nil")
	}

	if cfg.FS == nil {
		cfg.FS = fsx.NewReal()
	}

	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	st := store.New()
	docIO := notedb.NewDocIO(cfg.FS, nil, cfg.Log)

	e := &Engine{Store: st}

	bind := func(p notedb.Persister) {
		e.persisters = append(e.persisters, p)
		e.unbinds = append(e.unbinds, notedb.BindAutoSave(st, p, cfg.Log))
	}

	sessions := session.New(st, cfg.Settings, docIO, cfg.Notifier, cfg.Clock)

	bind(human.New(st, cfg.Settings, docIO, cfg.Notifier, cfg.Clock))
	bind(organization.New(st, cfg.Settings, docIO, cfg.Notifier, cfg.Clock))
	bind(prompt.New(st, cfg.Settings, docIO, cfg.Notifier, cfg.Clock))
	bind(sessions)
	bind(chat.New(st, cfg.Settings, docIO, cfg.Notifier, cfg.Clock))

	e.Sessions = &session.Ops{
		Store:    st,
		Settings: cfg.Settings,
		FS:       cfg.FS,
		UserID:   cfg.UserID,
		Clock:    cfg.Clock,
	}

	e.Chats = &chat.Ops{Store: st, UserID: cfg.UserID, Clock: cfg.Clock}

	// Folder-level events carry no entity identity: an externally renamed
	// folder shifts the paths of every session inside it, so the only
	// safe reaction is a full session reload.
	if cfg.Notifier != nil {
		e.folderWatch = notedb.ListenSimple(cfg.Notifier, cfg.Clock, notedb.SimpleListenerConfig{
			Label: "session-folders",
			Match: isSessionFolderEvent,
			Log:   cfg.Log,
		}, func() {
			err := sessions.Load(context.Background())
			if err != nil {
				cfg.Log.Error("folder change reload failed", "err", err)
			}
		})
	}

	return e
}

// Load populates the store from disk. Per-persister failures are joined;
// the remaining persisters still load.
func (e *Engine) Load(ctx context.Context) error {
	var errs []error

	for _, p := range e.persisters {
		err := p.Load(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close removes listeners and auto-save bindings. The store stays
// readable afterwards.
func (e *Engine) Close() {
	if e.folderWatch != nil {
		e.folderWatch.Close()
	}

	for _, unbind := range e.unbinds {
		unbind()
	}

	for _, p := range e.persisters {
		p.Destroy()
	}
}

// isSessionFolderEvent matches directory-level paths inside the sessions
// tree. Document paths carry an extension; folder and session directories
// do not. Like the id parsers, it accepts both data-dir-relative and
// absolute paths by locating the last occurrence of the kind segment.
func isSessionFolderEvent(p string) bool {
	segs := strings.FieldsFunc(strings.ReplaceAll(p, "\\", "/"), func(r rune) bool {
		return r == '/'
	})

	idx := -1

	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] == session.Dir {
			idx = i
			break
		}
	}

	if idx == -1 || idx == len(segs)-1 {
		return false
	}

	return !strings.Contains(segs[len(segs)-1], ".")
}

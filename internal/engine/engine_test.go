package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonote/notedb/internal/engine"
	"github.com/echonote/notedb/internal/persister/session"
	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

type stubNotifier struct {
	mu  sync.Mutex
	fns []func(notedb.PathEvent)
}

func (s *stubNotifier) Listen(fn func(notedb.PathEvent)) (func(), error) {
	s.mu.Lock()
	s.fns = append(s.fns, fn)
	s.mu.Unlock()

	return func() {}, nil
}

func (s *stubNotifier) emit(path string) {
	s.mu.Lock()
	fns := append([]func(notedb.PathEvent){}, s.fns...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(notedb.PathEvent{Path: path})
	}
}

func openEngine(t *testing.T, dataDir string, notifier notedb.Notifier, clock clockwork.Clock) *engine.Engine {
	t.Helper()

	e := engine.Open(engine.Config{
		Settings: notedb.StaticSettings(dataDir),
		Notifier: notifier,
		Clock:    clock,
		UserID:   "u1",
	})
	t.Cleanup(e.Close)

	return e
}

func Test_Mutations_Flow_To_Disk_Through_AutoSave(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()

	e := openEngine(t, dataDir, nil, clockwork.NewFakeClock())

	sessionID := e.Sessions.Create("Standup")
	groupID := e.Chats.CreateGroup("Summarize")

	e.Store.SetRow("humans", "h1", store.Row{"name": "Ada", "memo": ""})

	_, err := os.Stat(filepath.Join(dataDir, "sessions", sessionID, session.MetaFile))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(dataDir, "chats", groupID, "messages.json"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(dataDir, "humans", "h1.md"))
	assert.NoError(t, err)
}

func Test_Load_Populates_All_Kinds(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	seeded := openEngine(t, dataDir, nil, clockwork.NewFakeClock())
	sessionID := seeded.Sessions.Create("Standup")
	seeded.Store.SetRow("humans", "h1", store.Row{"name": "Ada", "memo": ""})
	seeded.Store.SetRow("prompts", "p1", store.Row{"user_id": "u1", "task_type": "summary", "content": "Summarize."})

	fresh := openEngine(t, dataDir, nil, clockwork.NewFakeClock())
	require.NoError(t, fresh.Load(ctx))

	_, ok := fresh.Store.GetRow("sessions", sessionID)
	assert.True(t, ok)

	_, ok = fresh.Store.GetRow("humans", "h1")
	assert.True(t, ok)

	_, ok = fresh.Store.GetRow("prompts", "p1")
	assert.True(t, ok)
}

func Test_External_Folder_Rename_Reloads_Sessions(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	notifier := &stubNotifier{}
	clock := clockwork.NewFakeClock()

	e := openEngine(t, dataDir, notifier, clock)

	sessionID := e.Sessions.Create("Planning")
	require.NoError(t, e.Sessions.MoveToFolder(ctx, sessionID, "work"))

	// Another program renames the folder on disk.
	require.NoError(t, os.Rename(
		filepath.Join(dataDir, "sessions", "work"),
		filepath.Join(dataDir, "sessions", "projects"),
	))

	notifier.emit("sessions/projects")

	require.Eventually(t, func() bool {
		row, ok := e.Store.GetRow("sessions", sessionID)
		return ok && row.String("folder_id") == "projects"
	}, 2*time.Second, 5*time.Millisecond)
}

func Test_Folder_Events_With_Absolute_Paths_Reload_Sessions(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	notifier := &stubNotifier{}

	e := openEngine(t, dataDir, notifier, clockwork.NewFakeClock())

	sessionID := e.Sessions.Create("Planning")
	require.NoError(t, e.Sessions.MoveToFolder(ctx, sessionID, "work"))

	require.NoError(t, os.Rename(
		filepath.Join(dataDir, "sessions", "work"),
		filepath.Join(dataDir, "sessions", "projects"),
	))

	// Some notifiers deliver absolute paths rather than data-dir-relative
	// ones.
	notifier.emit(filepath.Join(dataDir, "sessions", "projects"))

	require.Eventually(t, func() bool {
		row, ok := e.Store.GetRow("sessions", sessionID)
		return ok && row.String("folder_id") == "projects"
	}, 2*time.Second, 5*time.Millisecond)
}

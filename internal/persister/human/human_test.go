package human_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonote/notedb/internal/persister/human"
	"github.com/echonote/notedb/pkg/fsx"
	"github.com/echonote/notedb/pkg/notedb"
	"github.com/echonote/notedb/pkg/store"
)

func adaRow() store.Row {
	return store.Row{
		"user_id":           "u1",
		"name":              "Ada Lovelace",
		"email":             "ada@example.com",
		"org_id":            "org-1",
		"job_title":         "Engineer",
		"linkedin_username": "ada",
		"pinned":            true,
		"memo":              "memo body",
	}
}

func newPersister(st *store.Store, dataDir string, notifier notedb.Notifier, clock clockwork.Clock) *notedb.MarkdownDirPersister {
	docIO := notedb.NewDocIO(fsx.NewReal(), nil, nil)

	return human.New(st, notedb.StaticSettings(dataDir), docIO, notifier, clock)
}

func Test_Save_And_Load_Round_Trip(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	st := store.New()
	st.SetRow("humans", "h1", adaRow())

	p := newPersister(st, dataDir, nil, clockwork.NewFakeClock())
	defer p.Destroy()

	require.NoError(t, p.Save(ctx, nil))

	fresh := store.New()
	p2 := newPersister(fresh, dataDir, nil, clockwork.NewFakeClock())
	defer p2.Destroy()

	require.NoError(t, p2.Load(ctx))

	row, ok := fresh.GetRow("humans", "h1")
	require.True(t, ok)

	if diff := cmp.Diff(adaRow(), row); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func Test_Reloading_Unchanged_Disk_State_Emits_No_Changes(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	st := store.New()
	st.SetRow("humans", "h1", adaRow())

	p := newPersister(st, dataDir, nil, clockwork.NewFakeClock())
	defer p.Destroy()

	require.NoError(t, p.Save(ctx, nil))
	require.NoError(t, p.Load(ctx))

	notified := false
	unlisten := st.AddListener(func(store.ChangedTables) { notified = true })
	defer unlisten()

	require.NoError(t, p.Load(ctx))
	require.NoError(t, p.LoadSingle(ctx, "h1"))

	assert.False(t, notified, "identical reload must be a no-op")
}

func Test_LoadSingle_Deletes_Row_Of_Removed_File(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	st := store.New()
	st.SetRow("humans", "h1", adaRow())

	p := newPersister(st, dataDir, nil, clockwork.NewFakeClock())
	defer p.Destroy()

	require.NoError(t, p.Save(ctx, nil))
	require.NoError(t, os.Remove(filepath.Join(dataDir, "humans", "h1.md")))

	require.NoError(t, p.LoadSingle(ctx, "h1"))

	_, ok := st.GetRow("humans", "h1")
	assert.False(t, ok)
}

func Test_Save_After_Load_Removes_Orphaned_Documents(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	st := store.New()
	st.SetRow("humans", "h1", adaRow())
	st.SetRow("humans", "h2", store.Row{"name": "Ben", "memo": ""})

	p := newPersister(st, dataDir, nil, clockwork.NewFakeClock())
	defer p.Destroy()

	require.NoError(t, p.Save(ctx, nil))
	require.NoError(t, p.Load(ctx))

	st.DelRow("humans", "h2")

	require.NoError(t, p.Save(ctx, store.ChangedTables{
		"humans": {"h2": struct{}{}},
	}))

	_, err := os.Stat(filepath.Join(dataDir, "humans", "h2.md"))
	assert.True(t, os.IsNotExist(err), "orphaned document must be removed")

	_, err = os.Stat(filepath.Join(dataDir, "humans", "h1.md"))
	assert.NoError(t, err)
}

func Test_Targeted_Save_Leaves_Other_Documents_Untouched(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	st := store.New()
	st.SetRow("humans", "h1", adaRow())
	st.SetRow("humans", "h2", store.Row{"name": "Ben", "memo": ""})

	p := newPersister(st, dataDir, nil, clockwork.NewFakeClock())
	defer p.Destroy()

	require.NoError(t, p.Save(ctx, nil))

	// With h2's document gone, a save scoped to h1 must not recreate it.
	// Cleanup does not run because no full load completed.
	require.NoError(t, os.Remove(filepath.Join(dataDir, "humans", "h2.md")))

	st.SetCell("humans", "h1", "name", "Ada L.")

	require.NoError(t, p.Save(ctx, store.ChangedTables{
		"humans": {"h1": struct{}{}},
	}))

	_, err := os.Stat(filepath.Join(dataDir, "humans", "h2.md"))
	assert.True(t, os.IsNotExist(err), "out-of-scope document must not be rewritten")
}

func Test_AutoSave_Persists_Store_Mutations(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()

	st := store.New()

	p := newPersister(st, dataDir, nil, clockwork.NewFakeClock())
	defer p.Destroy()

	unbind := notedb.BindAutoSave(st, p, nil)
	defer unbind()

	st.SetRow("humans", "h1", adaRow())

	_, err := os.Stat(filepath.Join(dataDir, "humans", "h1.md"))
	assert.NoError(t, err, "mutation must flow to disk")
}

func Test_File_Event_Reloads_Changed_Entity(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	ctx := context.Background()

	notifier := &stubNotifier{}
	clock := clockwork.NewFakeClock()

	st := store.New()
	st.SetRow("humans", "h1", adaRow())

	p := newPersister(st, dataDir, notifier, clock)
	defer p.Destroy()

	require.NoError(t, p.Save(ctx, nil))

	// External edit: change the name on disk, then signal the path.
	edited := "---\nname: Augusta Ada King\n---\n\nmemo body"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "humans", "h1.md"), []byte(edited), 0o600))

	notifier.emit("humans/h1.md")
	clock.Advance(notedb.DefaultDebounce)

	require.Eventually(t, func() bool {
		row, ok := st.GetRow("humans", "h1")
		return ok && row.String("name") == "Augusta Ada King"
	}, 2*time.Second, 5*time.Millisecond)
}

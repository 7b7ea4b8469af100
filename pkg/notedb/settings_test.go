package notedb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonote/notedb/pkg/fsx"
	"github.com/echonote/notedb/pkg/notedb"
)

func Test_FileSettings_Reads_Data_Dir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	writeFile(t, path, `{"data_dir": "/home/user/notes"}`)

	s := notedb.NewFileSettings(fsx.NewReal(), path)

	dir, err := s.DataDir(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/home/user/notes", dir)
}

func Test_FileSettings_Accepts_Comments_And_Trailing_Commas(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	writeFile(t, path, `{
  // where the document tree lives
  "data_dir": "/home/user/notes",
}`)

	s := notedb.NewFileSettings(fsx.NewReal(), path)

	dir, err := s.DataDir(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/home/user/notes", dir)
}

func Test_FileSettings_Reports_Missing_File_As_ErrDataDir(t *testing.T) {
	t.Parallel()

	s := notedb.NewFileSettings(fsx.NewReal(), filepath.Join(t.TempDir(), "absent.json"))

	_, err := s.DataDir(context.Background())

	require.ErrorIs(t, err, notedb.ErrDataDir)
}

func Test_FileSettings_Reports_Malformed_File_As_ErrDataDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	writeFile(t, path, `{"data_dir": `)

	s := notedb.NewFileSettings(fsx.NewReal(), path)

	_, err := s.DataDir(context.Background())

	require.ErrorIs(t, err, notedb.ErrDataDir)
}

func Test_FileSettings_Reports_Empty_Data_Dir_As_ErrDataDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	writeFile(t, path, `{"data_dir": ""}`)

	s := notedb.NewFileSettings(fsx.NewReal(), path)

	_, err := s.DataDir(context.Background())

	require.ErrorIs(t, err, notedb.ErrDataDir)
}

func Test_FileSettings_Picks_Up_External_Edits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	writeFile(t, path, `{"data_dir": "/old"}`)

	s := notedb.NewFileSettings(fsx.NewReal(), path)

	dir, err := s.DataDir(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/old", dir)

	writeFile(t, path, `{"data_dir": "/new"}`)

	dir, err = s.DataDir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/new", dir)
}

func Test_StaticSettings_Returns_Fixed_Dir(t *testing.T) {
	t.Parallel()

	dir, err := notedb.StaticSettings("/data/app").DataDir(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/data/app", dir)

	_, err = notedb.StaticSettings("").DataDir(context.Background())
	require.ErrorIs(t, err, notedb.ErrDataDir)
}

package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCompose = `
services:
  web:
    image: app:1.0
`

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

// =============================================================================
// Save / Load Tests
// =============================================================================

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("web", sampleCompose))

	loaded, err := store.Load("web")
	require.NoError(t, err)
	assert.Equal(t, sampleCompose, loaded)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("web", "first"))
	require.NoError(t, store.Save("web", "second"))

	loaded, err := store.Load("web")
	require.NoError(t, err)
	assert.Equal(t, "second", loaded)
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("web", sampleCompose))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "web.compose", entries[0].Name())
}

func TestFileStore_LoadNotInstalled(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("never-installed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_RolesAreIndependent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("web", "web data"))
	require.NoError(t, store.Save("db", "db data"))

	web, err := store.Load("web")
	require.NoError(t, err)
	db, err := store.Load("db")
	require.NoError(t, err)

	assert.Equal(t, "web data", web)
	assert.Equal(t, "db data", db)
}

// =============================================================================
// Delete Tests
// =============================================================================

func TestFileStore_DeleteRemovesFile(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("web", sampleCompose))
	require.NoError(t, store.Delete("web"))

	_, err := store.Load("web")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_DeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("web", sampleCompose))
	require.NoError(t, store.Delete("web"))
	require.NoError(t, store.Delete("web"))

	_, err := os.Stat(store.Path("web"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_DeleteNeverInstalled(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete("never-installed"))
}

// =============================================================================
// Role Validation Tests
// =============================================================================

func TestFileStore_RejectsInvalidRoles(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		role string
	}{
		{name: "empty", role: ""},
		{name: "path separator", role: "a/b"},
		{name: "parent traversal", role: "../escape"},
		{name: "dot prefix", role: ".hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.Save(tt.role, "data"), ErrInvalidRole)

			_, err := store.Load(tt.role)
			assert.ErrorIs(t, err, ErrInvalidRole)

			assert.ErrorIs(t, store.Delete(tt.role), ErrInvalidRole)
		})
	}
}

// =============================================================================
// Layout Tests
// =============================================================================

func TestFileStore_PathLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "web.compose"), store.Path("web"))
}

func TestNewFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	_, err := NewFileStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

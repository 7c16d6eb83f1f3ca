package persist

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStoreImplementation runs the contract every Store must satisfy.
func testStoreImplementation(t *testing.T, store Store) {
	t.Run("Location", func(t *testing.T) {
		assert.NotEmpty(t, store.Location())
	})

	t.Run("MissingFile", func(t *testing.T) {
		exists, err := store.Exists()
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.Load()
		assert.ErrorIs(t, err, ErrNotExist)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, store.Save([]byte("first")))

		exists, err := store.Exists()
		require.NoError(t, err)
		assert.True(t, exists)

		data, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), data)
	})

	t.Run("SaveReplacesContent", func(t *testing.T) {
		require.NoError(t, store.Save([]byte("second, longer content")))
		require.NoError(t, store.Save([]byte("third")))

		data, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, []byte("third"), data)
	})

	t.Run("EmptyContent", func(t *testing.T) {
		require.NoError(t, store.Save([]byte{}))

		data, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("LoadReturnsCopy", func(t *testing.T) {
		require.NoError(t, store.Save([]byte("abc")))
		data, err := store.Load()
		require.NoError(t, err)
		data[0] = 'x'

		again, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", ".passwords.rooster"))
	require.NoError(t, err)
	testStoreImplementation(t, store)
}

func TestMemoryStore(t *testing.T) {
	testStoreImplementation(t, NewMemoryStore(nil))
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	path := filepath.Join(t.TempDir(), "store")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save([]byte("secret")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FilePermissions, info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files should be left behind")
}

func TestFileStoreLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.WriteFile(path, nil, FilePermissions))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	data, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestNewFileStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestMemoryStorePrepopulated(t *testing.T) {
	store := NewMemoryStore([]byte("blob"))
	exists, err := store.Exists()
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 0, store.Saves())

	require.NoError(t, store.Save([]byte("next")))
	assert.Equal(t, 1, store.Saves())
}

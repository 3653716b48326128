package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestDefaultConfigDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".listings"), dir)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.api_key", "demo"))
	require.NoError(t, store.Set("remote.requests_per_minute", 5))
	require.NoError(t, store.Set("sync.retain_query", true))

	assert.Equal(t, "demo", store.GetString("remote.api_key"))
	assert.Equal(t, 5, store.GetInt("remote.requests_per_minute"))
	assert.True(t, store.GetBool("sync.retain_query"))

	// Wrong types and missing keys fall back to zero values
	assert.Equal(t, "", store.GetString("remote.requests_per_minute"))
	assert.Equal(t, 0, store.GetInt("remote.api_key"))
	assert.False(t, store.GetBool("remote.api_key"))
	assert.Equal(t, "", store.GetString("missing"))

	val, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.kind", "alphavantage"))
	require.NoError(t, store.Set("remote.requests_per_minute", 5))
	require.NoError(t, store.Set("store.driver", "sqlite"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(raw, &decoded))
	remote, ok := decoded["remote"].(map[string]any)
	require.True(t, ok, "remote should be written as a table")
	assert.Equal(t, "alphavantage", remote["kind"])
	assert.Equal(t, int64(5), remote["requests_per_minute"])

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote.kind", "remote.requests_per_minute", "store.driver"}, reloaded.Keys())
	assert.Equal(t, 5, reloaded.GetInt("remote.requests_per_minute"))
}

func TestConfigStore_Unset(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("remote.token", "secret"))
	require.NoError(t, store.Unset("remote.token"))
	require.NoError(t, store.Unset("remote.token"))

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok := reloaded.Get("remote.token")
	assert.False(t, ok)
}

func TestConfigStore_Set_InvalidKey(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "  ", ".remote", "remote."} {
		assert.ErrorIs(t, store.Set(key, "x"), domain.ErrInvalidInput, "key %q", key)
	}
}

func TestConfigStore_Set_ConflictingKeysRollBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("remote", "flat"))
	err = store.Set("remote.kind", "file")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, ok := store.Get("remote.kind")
	assert.False(t, ok)
	assert.Equal(t, "flat", store.GetString("remote"))
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	// Channels cannot be marshaled to TOML
	err = store.Set("channel", make(chan int))
	assert.Error(t, err)
	_, ok := store.Get("channel")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("store.driver", "memory"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyAndCommentOnlyFile(t *testing.T) {
	for name, content := range map[string]string{"empty": "", "comment": "# Just a comment\n\n"} {
		t.Run(name, func(t *testing.T) {
			tmpDir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

			store, err := NewConfigStore(tmpDir)
			require.NoError(t, err)
			assert.Empty(t, store.Keys())
		})
	}
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "scheduler.key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 10)
}

// TestNewConfigStore_MkdirAllError tests error handling when directory creation fails
func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

// TestNewConfigStore_LoadCorruptedFile tests error handling when loading corrupted TOML
func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

// TestConfigStore_Save_WriteFileError tests error handling when WriteFile fails
func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory to cause write error
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
	assert.Error(t, store.Save())
}

func TestUnflattenMap(t *testing.T) {
	nested, err := unflattenMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, nested)

	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flattenMap(nested, ""))
}

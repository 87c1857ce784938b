package buffer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "buffer", "pending.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_FIFO(t *testing.T) {
	store := openStore(t)

	for _, op := range []string{OpSave, OpComplete, OpDelete} {
		require.NoError(t, store.Enqueue(Item{TaskID: "1", Operation: op}))
	}

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	items, err := store.Peek(10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, OpSave, items[0].Operation)
	assert.Equal(t, OpComplete, items[1].Operation)
	assert.Equal(t, OpDelete, items[2].Operation)
	for _, item := range items {
		assert.NotEmpty(t, item.ID)
		assert.False(t, item.Timestamp.IsZero())
	}

	head, err := store.Peek(1)
	require.NoError(t, err)
	require.Len(t, head, 1)
	require.NoError(t, store.Remove(head[0]))

	items, err = store.Peek(10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, OpComplete, items[0].Operation)
}

func TestStore_UpdateKeepsPosition(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(Item{TaskID: "a", Operation: OpSave}))
	require.NoError(t, store.Enqueue(Item{TaskID: "b", Operation: OpSave}))

	items, err := store.Peek(1)
	require.NoError(t, err)
	head := items[0]
	head.Retries++
	require.NoError(t, store.Update(head))

	items, err = store.Peek(2)
	require.NoError(t, err)
	assert.Equal(t, "a", items[0].TaskID)
	assert.Equal(t, 1, items[0].Retries)
	assert.Equal(t, "b", items[1].TaskID)
}

func TestStore_UnqueuedItem(t *testing.T) {
	store := openStore(t)
	assert.ErrorIs(t, store.Update(Item{ID: "x"}), ErrNotQueued)
	assert.ErrorIs(t, store.Remove(Item{ID: "x"}), ErrNotQueued)
}

func TestStore_Cleanup(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(Item{TaskID: "old", Operation: OpDelete, Timestamp: time.Now().Add(-time.Hour)}))
	require.NoError(t, store.Enqueue(Item{TaskID: "new", Operation: OpDelete}))

	removed, err := store.Cleanup(time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	items, err := store.Peek(0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].TaskID)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.db")
	store, err := Open(path, "writes")
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(Item{TaskID: "1", Operation: OpActivate}))
	require.NoError(t, store.Close())

	store, err = Open(path, "writes")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Enqueue(Item{TaskID: "2", Operation: OpDelete}))

	items, err := store.Peek(0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].TaskID)
	assert.Equal(t, "2", items[1].TaskID)
}

func TestStore_Closed(t *testing.T) {
	var store *Store
	assert.Error(t, store.Enqueue(Item{}))
	assert.NoError(t, store.Close())
}

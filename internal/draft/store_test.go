package draft

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id1, err := store.Save(ctx, "tok-1", "urn:demo", "1.0", 2, []byte(`{"a":1}`))
	require.NoError(t, err)
	id2, err := store.Save(ctx, "tok-1", "urn:demo", "1.0", 3, []byte(`{"a":2}`))
	require.NoError(t, err)
	_, err = store.Save(ctx, "tok-other", "urn:demo", "1.0", 2, []byte(`{}`))
	require.NoError(t, err)

	snapshots, err := store.List(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, id1, snapshots[0].ID)
	assert.Equal(t, id2, snapshots[1].ID)
	assert.Equal(t, int64(2), snapshots[0].Seq)
	assert.Equal(t, []byte(`{"a":2}`), snapshots[1].Payload)
	assert.NotEmpty(t, snapshots[0].SavedAt)
}

func TestStore_Latest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "tok-1", "urn:demo", "1.0", 2, []byte(`{"a":1}`))
	require.NoError(t, err)
	_, err = store.Save(ctx, "tok-1", "urn:demo", "1.0", 5, []byte(`{"a":5}`))
	require.NoError(t, err)

	snap, err := store.Latest(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), snap.Seq)
	assert.Equal(t, []byte(`{"a":5}`), snap.Payload)
	assert.Equal(t, "urn:demo", snap.InstrumentID)
	assert.Equal(t, "1.0", snap.InstrumentV)

	_, err = store.Latest(ctx, "tok-unknown")
	assert.Error(t, err)
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	first, err := Open(path)
	require.NoError(t, err)

	_, err = first.Save(context.Background(), "tok", "urn:demo", "1.0", 1, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	snapshots, err := second.List(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

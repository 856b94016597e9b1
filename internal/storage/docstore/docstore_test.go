package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
)

func mustItem(t *testing.T, id int64, v map[string]any) document.Item {
	t.Helper()
	it, err := document.New(id, v, &document.UserRef{ID: "u1"}, time.Now())
	require.NoError(t, err)
	return it
}

func TestMissingFileReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir(), "wb")

	items, rev, err := store.List(ctx, "admin1", document.Inventory, true)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, rev)

	ds, err := store.ReadAll(ctx, "admin1")
	require.NoError(t, err)
	require.NoError(t, ds.Validate())
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	owner := "admin1"

	store := New(dir, "wb")
	it := mustItem(t, 1, map[string]any{"name": "Jameson", "price": 2500, "branchId": "CBD"})
	require.NoError(t, store.Put(ctx, owner, document.Inventory, it))

	// A fresh store over the same directory sees the persisted data.
	reopened := New(dir, "wb")
	got, err := reopened.Get(ctx, owner, document.Inventory, 1)
	require.NoError(t, err)
	assert.JSONEq(t, string(it.Payload), string(got.Payload))
	assert.Equal(t, "CBD", got.BranchID)
}

func TestOwnerFileNaming(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := New(dir, "wb")
	require.NoError(t, store.Put(ctx, "admin1", document.Inventory, mustItem(t, 1, map[string]any{"name": "Tusker"})))

	_, err := os.Stat(filepath.Join(dir, "wb-admin-admin1.json"))
	assert.NoError(t, err)
}

func TestReplaceAllStaleRevision(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir(), "wb")
	owner := "admin1"

	it := mustItem(t, 1, map[string]any{"name": "Tusker"})
	require.NoError(t, store.Put(ctx, owner, document.Inventory, it))

	_, rev, err := store.List(ctx, owner, document.Inventory, true)
	require.NoError(t, err)

	require.NoError(t, store.ReplaceAll(ctx, owner, document.Inventory, []document.Item{it}, rev))

	err = store.ReplaceAll(ctx, owner, document.Inventory, nil, rev)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestWipeRemovesOwnerData(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir(), "wb")
	owner := "admin1"

	require.NoError(t, store.Put(ctx, owner, document.Inventory, mustItem(t, 1, map[string]any{"name": "Tusker"})))
	require.NoError(t, store.Wipe(ctx, owner))

	items, _, err := store.List(ctx, owner, document.Inventory, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFlagsPersistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := New(dir, "wb")
	require.NoError(t, store.SetFlag(ctx, "admin1", "normalizationVersion", "1"))

	reopened := New(dir, "wb")
	val, err := reopened.GetFlag(ctx, "admin1", "normalizationVersion")
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	missing, err := reopened.GetFlag(ctx, "admin1", "nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

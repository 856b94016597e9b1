package memstore

import (
	"context"
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

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()

	it := mustItem(t, 1, map[string]any{"name": "Jameson", "price": 2500})
	require.NoError(t, store.Put(ctx, "admin1", document.Inventory, it))

	got, err := store.Get(ctx, "admin1", document.Inventory, 1)
	require.NoError(t, err)
	assert.JSONEq(t, string(it.Payload), string(got.Payload))
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Get(ctx, "admin1", document.Inventory, 99)
	assert.True(t, apperror.IsNotFound(err))
}

func TestListExcludesTombstones(t *testing.T) {
	ctx := context.Background()
	store := New()
	owner := "admin1"

	live := mustItem(t, 1, map[string]any{"name": "Tusker"})
	dead := mustItem(t, 2, map[string]any{"name": "Guinness"})
	require.NoError(t, dead.Tombstone(document.UserRef{ID: "u1"}, time.Now()))

	require.NoError(t, store.PutBatch(ctx, owner, document.Inventory, []document.Item{live, dead}))

	active, _, err := store.List(ctx, owner, document.Inventory, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Nil(t, active[0].DeletedAt)

	all, _, err := store.List(ctx, owner, document.Inventory, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReplaceAllRevisionConflict(t *testing.T) {
	ctx := context.Background()
	store := New()
	owner := "admin1"

	it := mustItem(t, 1, map[string]any{"name": "Tusker"})
	require.NoError(t, store.Put(ctx, owner, document.Inventory, it))

	_, rev, err := store.List(ctx, owner, document.Inventory, true)
	require.NoError(t, err)

	// A write against the current revision succeeds.
	require.NoError(t, store.ReplaceAll(ctx, owner, document.Inventory, []document.Item{it}, rev))

	// A writer holding the stale revision is rejected.
	err = store.ReplaceAll(ctx, owner, document.Inventory, nil, rev)
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := New()

	it := mustItem(t, 1, map[string]any{"name": "Tusker"})
	require.NoError(t, store.Put(ctx, "admin1", document.Inventory, it))

	items, _, err := store.List(ctx, "admin2", document.Inventory, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWipe(t *testing.T) {
	ctx := context.Background()
	store := New()
	owner := "admin1"

	require.NoError(t, store.Put(ctx, owner, document.Inventory, mustItem(t, 1, map[string]any{"name": "Tusker"})))
	require.NoError(t, store.Wipe(ctx, owner))

	counts, err := store.Counts(ctx, owner)
	require.NoError(t, err)
	for collection, n := range counts {
		assert.Zero(t, n, collection)
	}
}

func TestFlags(t *testing.T) {
	ctx := context.Background()
	store := New()

	val, err := store.GetFlag(ctx, "admin1", "useIndexedStore")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, store.SetFlag(ctx, "admin1", "useIndexedStore", "true"))
	val, err = store.GetFlag(ctx, "admin1", "useIndexedStore")
	require.NoError(t, err)
	assert.Equal(t, "true", val)
}

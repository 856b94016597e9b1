package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/internal/storage/memstore"
)

const owner = "admin1"

func seedItem(t *testing.T, store storage.Collections, collection string, id int64, v map[string]any) document.Item {
	t.Helper()
	it, err := document.New(id, v, &document.UserRef{ID: "u1"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), owner, collection, it))
	return it
}

func deleteAt(t *testing.T, store storage.Collections, collection string, id int64, at time.Time) {
	t.Helper()
	ctx := context.Background()
	it, err := store.Get(ctx, owner, collection, id)
	require.NoError(t, err)
	require.NoError(t, it.Tombstone(document.UserRef{ID: "u1"}, at))
	require.NoError(t, store.Put(ctx, owner, collection, it))
}

func TestRestoreItemNoOpWhenNotDeleted(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	mgr := NewManager(store)

	seedItem(t, store, document.Inventory, 1, map[string]any{"name": "Tusker"})

	ok, err := mgr.RestoreItem(ctx, owner, document.Inventory, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mgr.RestoreItem(ctx, owner, document.Inventory, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestoreItemClearsOnlyTombstoneFields(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	mgr := NewManager(store)

	seedItem(t, store, document.Inventory, 1, map[string]any{"name": "Jameson", "price": 2500})
	deleteAt(t, store, document.Inventory, 1, time.Now())

	ok, err := mgr.RestoreItem(ctx, owner, document.Inventory, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, owner, document.Inventory, 1)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)
	assert.Empty(t, got.DeletedBy)

	var payload map[string]any
	require.NoError(t, got.Decode(&payload))
	assert.NotContains(t, payload, "deletedAt")
	assert.NotContains(t, payload, "deletedBy")
	assert.Equal(t, "Jameson", payload["name"])
	assert.EqualValues(t, 2500, payload["price"])
}

func TestDeletedItemsOnlyReturnsTombstoned(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	mgr := NewManager(store)

	seedItem(t, store, document.Inventory, 1, map[string]any{"name": "Tusker"})
	seedItem(t, store, document.Inventory, 2, map[string]any{"name": "Guinness"})
	deleteAt(t, store, document.Inventory, 2, time.Now())

	deleted, err := mgr.DeletedItems(ctx, owner, document.Inventory)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, int64(2), deleted[0].ID)
}

func TestRestoreByTimeRangeBoundsInclusive(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	mgr := NewManager(store)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedItem(t, store, document.Inventory, 1, map[string]any{"name": "before"})
	seedItem(t, store, document.Inventory, 2, map[string]any{"name": "exact"})
	seedItem(t, store, document.Inventory, 3, map[string]any{"name": "after"})
	deleteAt(t, store, document.Inventory, 1, base.Add(-time.Minute))
	deleteAt(t, store, document.Inventory, 2, base)
	deleteAt(t, store, document.Inventory, 3, base.Add(time.Minute))

	report, err := mgr.RestoreAllByTimeRange(ctx, owner, base, base)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRestored)
	assert.Zero(t, report.TotalFailed)

	got, err := store.Get(ctx, owner, document.Inventory, 2)
	require.NoError(t, err)
	assert.Nil(t, got.DeletedAt)

	still, err := mgr.DeletedItems(ctx, owner, document.Inventory)
	require.NoError(t, err)
	assert.Len(t, still, 2)
}

// readOnlyStore serves reads from the wrapped store but fails batch writes.
type readOnlyStore struct {
	storage.Collections
}

var errReadOnly = errors.New("store is read only")

func (r *readOnlyStore) PutBatch(ctx context.Context, owner, collection string, items []document.Item) error {
	return errReadOnly
}

func TestRestoreByTimeRangePersistFailureCountsAsFailed(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	mgr := NewManager(&readOnlyStore{Collections: mem})

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedItem(t, mem, document.Inventory, 1, map[string]any{"name": "Tusker"})
	seedItem(t, mem, document.Inventory, 2, map[string]any{"name": "Guinness"})
	deleteAt(t, mem, document.Inventory, 1, at)
	deleteAt(t, mem, document.Inventory, 2, at)

	report, err := mgr.RestoreAllByTimeRange(ctx, owner, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)

	assert.Zero(t, report.TotalRestored)
	assert.Equal(t, 2, report.TotalFailed)
	result := report.Results[document.Inventory]
	assert.Zero(t, result.Restored)
	assert.Equal(t, 2, result.Failed)
	assert.NotEmpty(t, result.Error)
}

func TestGroupSessionsSplitsOnWindow(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	offsets := []time.Duration{0, 4 * time.Minute, 9 * time.Minute, 20 * time.Minute}

	items := make([]document.Item, 0, len(offsets))
	for i, off := range offsets {
		it, err := document.New(int64(i+1), map[string]any{"name": "x"}, nil, base)
		require.NoError(t, err)
		require.NoError(t, it.Tombstone(document.UserRef{ID: "u1"}, base.Add(off)))
		items = append(items, it)
	}

	sessions := GroupSessions(document.Inventory, items)
	require.Len(t, sessions, 2)

	// Newest first: the 10:20 deletion stands alone, the chained
	// 10:00/10:04/10:09 deletions form one session.
	assert.Len(t, sessions[0].Items, 1)
	assert.Len(t, sessions[1].Items, 3)
	assert.Equal(t, base.Add(9*time.Minute), sessions[1].End)
	assert.Equal(t, base, sessions[1].Start)
}

func TestMergeIntervals(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ts := []time.Time{
		base,
		base.Add(2 * time.Minute),
		base.Add(30 * time.Minute),
	}

	groups := MergeIntervals(ts, 5*time.Minute)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 1)
	assert.Len(t, groups[1], 2)

	assert.Nil(t, MergeIntervals(nil, time.Minute))
}

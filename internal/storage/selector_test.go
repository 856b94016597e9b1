package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/core/document"
)

// failingStore errors every call and records whether writes reached it.
type failingStore struct {
	writes int
}

var errDown = errors.New("backend down")

func (f *failingStore) List(ctx context.Context, owner, collection string, includeDeleted bool) ([]document.Item, Revision, error) {
	return nil, 0, errDown
}

func (f *failingStore) Get(ctx context.Context, owner, collection string, id int64) (document.Item, error) {
	return document.Item{}, errDown
}

func (f *failingStore) Put(ctx context.Context, owner, collection string, item document.Item) error {
	f.writes++
	return errDown
}

func (f *failingStore) PutBatch(ctx context.Context, owner, collection string, items []document.Item) error {
	f.writes++
	return errDown
}

func (f *failingStore) ReplaceAll(ctx context.Context, owner, collection string, items []document.Item, expected Revision) error {
	f.writes++
	return errDown
}

func (f *failingStore) ReadAll(ctx context.Context, owner string) (*document.DataSet, error) {
	return nil, errDown
}

func (f *failingStore) WriteAll(ctx context.Context, owner string, ds *document.DataSet) error {
	f.writes++
	return errDown
}

func (f *failingStore) Counts(ctx context.Context, owner string) (map[string]int, error) {
	return nil, errDown
}

func (f *failingStore) Wipe(ctx context.Context, owner string) error {
	f.writes++
	return errDown
}

// recordingStore is an in-memory fallback that notes which reads it served.
type recordingStore struct {
	items map[string][]document.Item
	reads int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{items: map[string][]document.Item{}}
}

func (r *recordingStore) List(ctx context.Context, owner, collection string, includeDeleted bool) ([]document.Item, Revision, error) {
	r.reads++
	return r.items[collection], 1, nil
}

func (r *recordingStore) Get(ctx context.Context, owner, collection string, id int64) (document.Item, error) {
	r.reads++
	for _, it := range r.items[collection] {
		if it.ID == id {
			return it, nil
		}
	}
	return document.Item{}, errDown
}

func (r *recordingStore) Put(ctx context.Context, owner, collection string, item document.Item) error {
	r.items[collection] = append(r.items[collection], item)
	return nil
}

func (r *recordingStore) PutBatch(ctx context.Context, owner, collection string, items []document.Item) error {
	r.items[collection] = append(r.items[collection], items...)
	return nil
}

func (r *recordingStore) ReplaceAll(ctx context.Context, owner, collection string, items []document.Item, expected Revision) error {
	r.items[collection] = items
	return nil
}

func (r *recordingStore) ReadAll(ctx context.Context, owner string) (*document.DataSet, error) {
	r.reads++
	return document.NewDataSet(), nil
}

func (r *recordingStore) WriteAll(ctx context.Context, owner string, ds *document.DataSet) error {
	return nil
}

func (r *recordingStore) Counts(ctx context.Context, owner string) (map[string]int, error) {
	r.reads++
	return map[string]int{}, nil
}

func (r *recordingStore) Wipe(ctx context.Context, owner string) error {
	return nil
}

func TestSelectorServesReadsFromFallback(t *testing.T) {
	ctx := context.Background()
	primary := &failingStore{}
	fallback := newRecordingStore()

	it, err := document.New(1, map[string]any{"name": "Tusker"}, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, fallback.Put(ctx, "admin1", document.Inventory, it))

	sel := NewSelector(primary, fallback)

	items, _, err := sel.List(ctx, "admin1", document.Inventory, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)

	got, err := sel.Get(ctx, "admin1", document.Inventory, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	_, err = sel.ReadAll(ctx, "admin1")
	assert.NoError(t, err)

	_, err = sel.Counts(ctx, "admin1")
	assert.NoError(t, err)

	assert.NotZero(t, fallback.reads)
}

func TestSelectorWritesNeverFallBack(t *testing.T) {
	ctx := context.Background()
	primary := &failingStore{}
	fallback := newRecordingStore()
	sel := NewSelector(primary, fallback)

	it, err := document.New(1, map[string]any{"name": "Tusker"}, nil, time.Now())
	require.NoError(t, err)

	assert.Error(t, sel.Put(ctx, "admin1", document.Inventory, it))
	assert.Error(t, sel.PutBatch(ctx, "admin1", document.Inventory, []document.Item{it}))
	assert.Error(t, sel.ReplaceAll(ctx, "admin1", document.Inventory, nil, 0))
	assert.Error(t, sel.WriteAll(ctx, "admin1", document.NewDataSet()))
	assert.Error(t, sel.Wipe(ctx, "admin1"))

	// The fallback saw no writes and holds no data.
	assert.Empty(t, fallback.items[document.Inventory])
	assert.Equal(t, 5, primary.writes)
}

func TestSelectorWithoutFallbackSurfacesErrors(t *testing.T) {
	ctx := context.Background()
	sel := NewSelector(&failingStore{}, nil)

	_, _, err := sel.List(ctx, "admin1", document.Inventory, true)
	assert.ErrorIs(t, err, errDown)
}

// flagMap is an in-memory Flags double.
type flagMap map[string]string

func (f flagMap) GetFlag(ctx context.Context, owner, name string) (string, error) {
	return f[owner+"/"+name], nil
}

func (f flagMap) SetFlag(ctx context.Context, owner, name, value string) error {
	f[owner+"/"+name] = value
	return nil
}

func TestSelectorRoutesRolledBackOwnerToFallback(t *testing.T) {
	ctx := context.Background()
	primary := newRecordingStore()
	fallback := newRecordingStore()
	flags := flagMap{}
	sel := NewSelector(primary, fallback).RouteByFlag(flags)

	it, err := document.New(1, map[string]any{"name": "Tusker"}, nil, time.Now())
	require.NoError(t, err)

	// Flag unset: the configured primary serves reads and writes.
	require.NoError(t, sel.Put(ctx, "admin1", document.Inventory, it))
	assert.Len(t, primary.items[document.Inventory], 1)
	assert.Empty(t, fallback.items[document.Inventory])

	// Rolled back: everything for this owner goes to the fallback.
	require.NoError(t, flags.SetFlag(ctx, "admin1", FlagUseIndexedStore, "false"))
	require.NoError(t, sel.Put(ctx, "admin1", document.Inventory, it))
	assert.Len(t, primary.items[document.Inventory], 1)
	assert.Len(t, fallback.items[document.Inventory], 1)

	items, _, err := sel.List(ctx, "admin1", document.Inventory, true)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NotZero(t, fallback.reads)
	assert.Zero(t, primary.reads)

	// Committed again: routing returns to the primary.
	require.NoError(t, flags.SetFlag(ctx, "admin1", FlagUseIndexedStore, "true"))
	require.NoError(t, sel.Put(ctx, "admin1", document.Inventory, it))
	assert.Len(t, primary.items[document.Inventory], 2)
}

package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/core/types"
	"whiskeyballet/internal/recovery"
	"whiskeyballet/internal/storage/memstore"
)

const owner = "admin1"

func TestAddAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	first, err := svc.Add(ctx, owner, Product{Name: "Tusker Lager", Price: types.NewMoney(300), Quantity: 24})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	second, err := svc.Add(ctx, owner, Product{Name: "Guinness", Price: types.NewMoney(350), Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	_, err := svc.Add(ctx, owner, Product{Price: types.NewMoney(300)})
	assert.Error(t, err)

	_, err = svc.Add(ctx, owner, Product{Name: "Tusker", Quantity: -1})
	assert.Error(t, err)
}

func TestDeletedIDsAreNeverReused(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	first, err := svc.Add(ctx, owner, Product{Name: "Tusker", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner, first.ID))

	second, err := svc.Add(ctx, owner, Product{Name: "Guinness", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestListFiltersByBranchLeniently(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	_, err := svc.Add(ctx, owner, Product{Name: "Tusker", BranchID: "CBD"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, owner, Product{Name: "Guinness", BranchID: "Westlands"})
	require.NoError(t, err)

	cbd, err := svc.List(ctx, owner, " cbd ")
	require.NoError(t, err)
	require.Len(t, cbd, 1)
	assert.Equal(t, "Tusker", cbd[0].Name)

	all, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	p, err := svc.Add(ctx, owner, Product{Name: "Tusker", Quantity: 5})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, owner, p.ID, -8, "breakage")
	assert.Error(t, err)

	// Stock is untouched after the rejected adjustment.
	got, err := svc.Get(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
}

func TestAdjustRecordsAdjustmentAndNewStock(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	p, err := svc.Add(ctx, owner, Product{Name: "Tusker", Quantity: 10})
	require.NoError(t, err)

	adj, err := svc.Adjust(ctx, owner, p.ID, -3, "sale")
	require.NoError(t, err)
	assert.Equal(t, 10, adj.PreviousStock)
	assert.Equal(t, 7, adj.NewStock)
	assert.Equal(t, adj.PreviousStock+adj.Quantity, adj.NewStock)

	got, err := svc.Get(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
}

func TestLowStockHonorsPerProductReorderLevel(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	_, err := svc.Add(ctx, owner, Product{Name: "fine", Quantity: 50})
	require.NoError(t, err)
	_, err = svc.Add(ctx, owner, Product{Name: "low by default", Quantity: 8})
	require.NoError(t, err)
	_, err = svc.Add(ctx, owner, Product{Name: "low by override", Quantity: 40, ReorderLevel: 45})
	require.NoError(t, err)

	low, err := svc.LowStock(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, low, 2)
	names := []string{low[0].Name, low[1].Name}
	assert.Contains(t, names, "low by default")
	assert.Contains(t, names, "low by override")
}

func TestDeleteThenRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewService(store)
	mgr := recovery.NewManager(store)

	p, err := svc.Add(ctx, owner, Product{
		Name:     "Jameson",
		Price:    types.NewMoney(2500),
		Quantity: 6,
		BranchID: "CBD",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, p.ID))

	// Deleted products disappear from listings and lookups.
	listed, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	assert.Empty(t, listed)
	_, err = svc.Get(ctx, owner, p.ID)
	assert.True(t, apperror.IsNotFound(err))

	// Delete of an already deleted product is a quiet no-op.
	require.NoError(t, svc.Delete(ctx, owner, p.ID))

	ok, err := mgr.RestoreItem(ctx, owner, "inventory", p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	restored, err := svc.Get(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jameson", restored.Name)
	assert.True(t, restored.Price.Equal(types.NewMoney(2500)))
	assert.Equal(t, 6, restored.Quantity)
	assert.Equal(t, "CBD", restored.BranchID)
}

func TestAdjustRejectsDeletedProduct(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewService(store)

	p, err := svc.Add(ctx, owner, Product{Name: "Tusker", Price: types.NewMoney(300), Quantity: 24})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner, p.ID))

	_, err = svc.Adjust(ctx, owner, p.ID, 5, "recount")
	assert.True(t, apperror.IsNotFound(err))

	// No adjustment document was written for the rejected change.
	counts, err := store.Counts(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, counts[document.StockAdjustments])
}

package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/core/types"
	"whiskeyballet/internal/domain/inventory"
	"whiskeyballet/internal/migrate"
	"whiskeyballet/internal/storage/memstore"
)

const owner = "admin1"

func newTestService(t *testing.T) (*Service, *inventory.Service) {
	t.Helper()
	store := memstore.New()
	inv := inventory.NewService(store)
	return NewService(store, inv, migrate.NewNormalizer(store, store)), inv
}

func stockProduct(t *testing.T, inv *inventory.Service, name string, qty int) int64 {
	t.Helper()
	p, err := inv.Add(context.Background(), owner, inventory.Product{
		Name:     name,
		Price:    types.NewMoney(300),
		Quantity: qty,
	})
	require.NoError(t, err)
	return p.ID
}

func TestRecordAppliesPaymentDefaults(t *testing.T) {
	ctx := context.Background()
	svc, inv := newTestService(t)
	pid := stockProduct(t, inv, "Tusker", 24)

	got, err := svc.Record(ctx, owner, Transaction{
		Items: []LineItem{{ProductID: pid, Quantity: 2, Price: types.NewMoney(300)}},
		Total: types.NewMoney(600),
	})
	require.NoError(t, err)
	assert.Equal(t, MethodCash, got.PaymentMethod)
	assert.Equal(t, migrate.PaymentStatusCompleted, got.PaymentStatus)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, document.NoBranch, got.BranchID)
}

func TestRecordCreditSaleIsPending(t *testing.T) {
	ctx := context.Background()
	svc, inv := newTestService(t)
	pid := stockProduct(t, inv, "Tusker", 24)

	got, err := svc.Record(ctx, owner, Transaction{
		Items:         []LineItem{{ProductID: pid, Quantity: 1}},
		PaymentMethod: MethodCredit,
	})
	require.NoError(t, err)
	assert.Equal(t, migrate.PaymentStatusPending, got.PaymentStatus)
}

func TestRecordDecrementsStock(t *testing.T) {
	ctx := context.Background()
	svc, inv := newTestService(t)
	pid := stockProduct(t, inv, "Tusker", 10)

	_, err := svc.Record(ctx, owner, Transaction{
		Items: []LineItem{{ProductID: pid, Quantity: 4}},
	})
	require.NoError(t, err)

	p, err := inv.Get(ctx, owner, pid)
	require.NoError(t, err)
	assert.Equal(t, 6, p.Quantity)
}

func TestRecordRejectsOverselling(t *testing.T) {
	ctx := context.Background()
	svc, inv := newTestService(t)
	pid := stockProduct(t, inv, "Tusker", 2)

	_, err := svc.Record(ctx, owner, Transaction{
		Items: []LineItem{{ProductID: pid, Quantity: 5}},
	})
	assert.Error(t, err)
}

func TestRecordValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Record(ctx, owner, Transaction{})
	assert.Error(t, err)

	_, err = svc.Record(ctx, owner, Transaction{
		Items: []LineItem{{ProductID: 1, Quantity: 0}},
	})
	assert.Error(t, err)
}

func TestSettleCredit(t *testing.T) {
	ctx := context.Background()
	svc, inv := newTestService(t)
	pid := stockProduct(t, inv, "Tusker", 24)

	sale, err := svc.Record(ctx, owner, Transaction{
		Items:         []LineItem{{ProductID: pid, Quantity: 1}},
		PaymentMethod: MethodCredit,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SettleCredit(ctx, owner, sale.ID))

	txs, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, migrate.PaymentStatusCompleted, txs[0].PaymentStatus)

	// Settling twice is a business rule violation, not a success.
	err = svc.SettleCredit(ctx, owner, sale.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "NOT_PENDING", appErr.Code)
}

func TestListBackfillsLegacyBranchIDs(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	inv := inventory.NewService(store)

	legacy, err := document.New(1, map[string]any{
		"cashierId":     "u1",
		"total":         500,
		"paymentMethod": "cash",
		"paymentStatus": "completed",
	}, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, owner, document.Transactions, legacy))

	svc := NewService(store, inv, migrate.NewNormalizer(store, store)).
		WithBackfill(migrate.NewBackfiller(store, store), func(context.Context, string) ([]migrate.BranchUser, error) {
			return []migrate.BranchUser{{ID: "u1", BranchID: "CBD"}}, nil
		})

	txs, err := svc.List(ctx, owner, "CBD")
	require.NoError(t, err)
	require.Len(t, txs, 1)

	it, err := store.Get(ctx, owner, document.Transactions, 1)
	require.NoError(t, err)
	assert.Equal(t, "CBD", it.BranchID)
}

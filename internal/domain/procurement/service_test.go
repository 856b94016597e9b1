package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/types"
	"whiskeyballet/internal/domain/inventory"
	"whiskeyballet/internal/storage/memstore"
)

const owner = "admin1"

type fixture struct {
	svc *Service
	inv *inventory.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memstore.New()
	inv := inventory.NewService(store)
	return fixture{svc: NewService(store, inv), inv: inv}
}

func (f fixture) supplier(t *testing.T) Supplier {
	t.Helper()
	sup, err := f.svc.AddSupplier(context.Background(), owner, Supplier{
		Name:   "EABL Distributors",
		KRAPin: "P051234567X",
	})
	require.NoError(t, err)
	return sup
}

func (f fixture) product(t *testing.T, qty int) int64 {
	t.Helper()
	p, err := f.inv.Add(context.Background(), owner, inventory.Product{
		Name:     "Tusker",
		Price:    types.NewMoney(300),
		Quantity: qty,
	})
	require.NoError(t, err)
	return p.ID
}

func (f fixture) order(t *testing.T, supplierID, productID int64, qty int) PurchaseOrder {
	t.Helper()
	po, err := f.svc.CreateOrder(context.Background(), owner, PurchaseOrder{
		SupplierID: supplierID,
		Lines:      []OrderLine{{ProductID: productID, Quantity: qty, UnitCost: types.NewMoney(200)}},
	})
	require.NoError(t, err)
	return po
}

func TestCreateOrderRequiresKnownSupplier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateOrder(ctx, owner, PurchaseOrder{
		SupplierID: 99,
		Lines:      []OrderLine{{ProductID: 1, Quantity: 10}},
	})
	assert.True(t, apperror.IsNotFound(err))

	sup := f.supplier(t)
	_, err = f.svc.CreateOrder(ctx, owner, PurchaseOrder{SupplierID: sup.ID})
	assert.Error(t, err)
}

func TestFullDeliveryMarksOrderReceived(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sup := f.supplier(t)
	pid := f.product(t, 5)
	po := f.order(t, sup.ID, pid, 20)

	grn, err := f.svc.ReceiveGoods(ctx, owner, GoodsReceivedNote{
		OrderID: po.ID,
		Lines:   []ReceivedLine{{ProductID: pid, Ordered: 20, Received: 20}},
	})
	require.NoError(t, err)
	assert.Equal(t, sup.ID, grn.SupplierID)

	p, err := f.inv.Get(ctx, owner, pid)
	require.NoError(t, err)
	assert.Equal(t, 25, p.Quantity)

	// A second delivery against the received order is rejected.
	_, err = f.svc.ReceiveGoods(ctx, owner, GoodsReceivedNote{
		OrderID: po.ID,
		Lines:   []ReceivedLine{{ProductID: pid, Ordered: 20, Received: 1}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "ORDER_CLOSED", appErr.Code)
}

func TestPartialDeliveryAllowsFollowUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sup := f.supplier(t)
	pid := f.product(t, 0)
	po := f.order(t, sup.ID, pid, 20)

	_, err := f.svc.ReceiveGoods(ctx, owner, GoodsReceivedNote{
		OrderID: po.ID,
		Lines:   []ReceivedLine{{ProductID: pid, Ordered: 20, Received: 8}},
	})
	require.NoError(t, err)

	p, err := f.inv.Get(ctx, owner, pid)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Quantity)

	// The remainder can still come in on a second note.
	_, err = f.svc.ReceiveGoods(ctx, owner, GoodsReceivedNote{
		OrderID: po.ID,
		Lines:   []ReceivedLine{{ProductID: pid, Ordered: 12, Received: 12}},
	})
	require.NoError(t, err)

	p, err = f.inv.Get(ctx, owner, pid)
	require.NoError(t, err)
	assert.Equal(t, 20, p.Quantity)
}

func TestReceiveRejectsNegativeQuantities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sup := f.supplier(t)
	pid := f.product(t, 0)
	po := f.order(t, sup.ID, pid, 10)

	_, err := f.svc.ReceiveGoods(ctx, owner, GoodsReceivedNote{
		OrderID: po.ID,
		Lines:   []ReceivedLine{{ProductID: pid, Ordered: 10, Received: -1}},
	})
	assert.Error(t, err)
}

func TestRecordPaymentRequiresKnownSupplier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.RecordPayment(ctx, owner, SupplierPayment{
		SupplierID: 42,
		Amount:     types.NewMoney(10000),
		Method:     "mpesa",
	})
	assert.True(t, apperror.IsNotFound(err))

	sup := f.supplier(t)
	pay, err := f.svc.RecordPayment(ctx, owner, SupplierPayment{
		SupplierID: sup.ID,
		Amount:     types.NewMoney(10000),
		Method:     "mpesa",
		Reference:  "QX12ABC34",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pay.ID)
	assert.False(t, pay.PaidAt.IsZero())
}

// Package procurement covers suppliers, purchase orders, goods
// received notes and supplier payments.
package procurement

import (
	"context"
	"time"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/domain"
	"whiskeyballet/internal/domain/inventory"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// Service provides the procurement workflow.
type Service struct {
	store     storage.Collections
	inventory *inventory.Service
}

func NewService(store storage.Collections, inv *inventory.Service) *Service {
	return &Service{store: store, inventory: inv}
}

// --- suppliers ---

func (s *Service) ListSuppliers(ctx context.Context, owner string) ([]Supplier, error) {
	items, _, err := s.store.List(ctx, owner, document.Suppliers, false)
	if err != nil {
		return nil, err
	}
	suppliers := make([]Supplier, 0, len(items))
	for _, it := range items {
		var sup Supplier
		if err := it.Decode(&sup); err != nil {
			continue
		}
		sup.ID = it.ID
		suppliers = append(suppliers, sup)
	}
	return suppliers, nil
}

func (s *Service) AddSupplier(ctx context.Context, owner string, sup Supplier) (Supplier, error) {
	if sup.Name == "" {
		return Supplier{}, apperror.NewValidation("supplier name is required")
	}
	items, _, err := s.store.List(ctx, owner, document.Suppliers, true)
	if err != nil {
		return Supplier{}, err
	}
	sup.ID = document.NextID(items)

	item, err := document.New(sup.ID, sup, domain.UserRef(ctx), time.Now())
	if err != nil {
		return Supplier{}, err
	}
	if err := s.store.Put(ctx, owner, document.Suppliers, item); err != nil {
		return Supplier{}, err
	}
	return sup, nil
}

// --- purchase orders ---

// CreateOrder places a purchase order with a supplier.
func (s *Service) CreateOrder(ctx context.Context, owner string, po PurchaseOrder) (PurchaseOrder, error) {
	if len(po.Lines) == 0 {
		return PurchaseOrder{}, apperror.NewValidation("order has no lines")
	}
	if _, err := s.store.Get(ctx, owner, document.Suppliers, po.SupplierID); err != nil {
		return PurchaseOrder{}, err
	}

	if po.Status == "" {
		po.Status = OrderStatusOrdered
	}
	if po.OrderedAt.IsZero() {
		po.OrderedAt = time.Now().UTC()
	}

	items, _, err := s.store.List(ctx, owner, document.PurchaseOrders, true)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.ID = document.NextID(items)

	item, err := document.New(po.ID, po, domain.UserRef(ctx), time.Now())
	if err != nil {
		return PurchaseOrder{}, err
	}
	item.BranchID = po.BranchID
	if err := item.SyncPayload(); err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.store.Put(ctx, owner, document.PurchaseOrders, item); err != nil {
		return PurchaseOrder{}, err
	}
	logger.Info(ctx, "purchase order created", "owner", owner, "id", po.ID, "supplier", po.SupplierID)
	return po, nil
}

// ReceiveGoods records a delivery, increments stock for each received
// line, and advances the order status. Partial deliveries leave the
// order partially received.
func (s *Service) ReceiveGoods(ctx context.Context, owner string, grn GoodsReceivedNote) (GoodsReceivedNote, error) {
	orderItem, err := s.store.Get(ctx, owner, document.PurchaseOrders, grn.OrderID)
	if err != nil {
		return GoodsReceivedNote{}, err
	}
	var po PurchaseOrder
	if err := orderItem.Decode(&po); err != nil {
		return GoodsReceivedNote{}, err
	}
	if po.Status == OrderStatusReceived || po.Status == OrderStatusClosed {
		return GoodsReceivedNote{}, apperror.NewBusinessRule("ORDER_CLOSED", "order is already fully received").
			WithDetail("orderId", grn.OrderID)
	}

	complete := true
	for i, line := range grn.Lines {
		if line.Received < 0 {
			return GoodsReceivedNote{}, apperror.NewValidation("received quantity must not be negative").
				WithDetail("productId", line.ProductID)
		}
		if line.Received < line.Ordered {
			complete = false
		}
		if line.Received > 0 {
			if _, err := s.inventory.Adjust(ctx, owner, line.ProductID, line.Received, "goods received"); err != nil {
				return GoodsReceivedNote{}, err
			}
		}
		grn.Lines[i] = line
	}

	grn.SupplierID = po.SupplierID
	if grn.ReceivedAt.IsZero() {
		grn.ReceivedAt = time.Now().UTC()
	}

	notes, _, err := s.store.List(ctx, owner, document.GoodsReceivedNotes, true)
	if err != nil {
		return GoodsReceivedNote{}, err
	}
	grn.ID = document.NextID(notes)

	item, err := document.New(grn.ID, grn, domain.UserRef(ctx), time.Now())
	if err != nil {
		return GoodsReceivedNote{}, err
	}
	if err := s.store.Put(ctx, owner, document.GoodsReceivedNotes, item); err != nil {
		return GoodsReceivedNote{}, err
	}

	po.ID = grn.OrderID
	if complete {
		po.Status = OrderStatusReceived
	} else {
		po.Status = OrderStatusPartial
	}
	updated, err := document.New(po.ID, po, domain.UserRef(ctx), time.Now())
	if err != nil {
		return GoodsReceivedNote{}, err
	}
	updated.BranchID = orderItem.BranchID
	updated.CreatedAt = orderItem.CreatedAt
	updated.CreatedBy = orderItem.CreatedBy
	if err := updated.SyncPayload(); err != nil {
		return GoodsReceivedNote{}, err
	}
	if err := s.store.Put(ctx, owner, document.PurchaseOrders, updated); err != nil {
		return GoodsReceivedNote{}, err
	}
	return grn, nil
}

// RecordPayment stores a supplier payment.
func (s *Service) RecordPayment(ctx context.Context, owner string, pay SupplierPayment) (SupplierPayment, error) {
	if _, err := s.store.Get(ctx, owner, document.Suppliers, pay.SupplierID); err != nil {
		return SupplierPayment{}, err
	}
	if pay.PaidAt.IsZero() {
		pay.PaidAt = time.Now().UTC()
	}

	items, _, err := s.store.List(ctx, owner, document.SupplierPayments, true)
	if err != nil {
		return SupplierPayment{}, err
	}
	pay.ID = document.NextID(items)

	item, err := document.New(pay.ID, pay, domain.UserRef(ctx), time.Now())
	if err != nil {
		return SupplierPayment{}, err
	}
	if err := s.store.Put(ctx, owner, document.SupplierPayments, item); err != nil {
		return SupplierPayment{}, err
	}
	return pay, nil
}

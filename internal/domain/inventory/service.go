// Package inventory provides product and stock management.
package inventory

import (
	"context"
	"time"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/domain"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// Service provides business logic for the product catalog.
type Service struct {
	store storage.Collections
}

func NewService(store storage.Collections) *Service {
	return &Service{store: store}
}

// List returns active products, optionally filtered to one branch.
// Branch matching is lenient: case-insensitive, trimmed, and empty
// branch means all branches.
func (s *Service) List(ctx context.Context, owner, branchID string) ([]Product, error) {
	items, _, err := s.store.List(ctx, owner, document.Inventory, false)
	if err != nil {
		return nil, err
	}
	if branchID != "" {
		items = document.FilterBranch(items, branchID)
	}

	products := make([]Product, 0, len(items))
	for _, it := range items {
		var p Product
		if err := it.Decode(&p); err != nil {
			continue
		}
		p.ID = it.ID
		products = append(products, p)
	}
	return products, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, owner string, id int64) (Product, error) {
	item, err := s.store.Get(ctx, owner, document.Inventory, id)
	if err != nil {
		return Product{}, err
	}
	if item.IsDeleted() {
		return Product{}, apperror.NewNotFound("product", id)
	}
	var p Product
	if err := item.Decode(&p); err != nil {
		return Product{}, err
	}
	p.ID = item.ID
	return p, nil
}

// Add creates a product, assigning the next integer id for the
// tenant's inventory.
func (s *Service) Add(ctx context.Context, owner string, p Product) (Product, error) {
	if p.Name == "" {
		return Product{}, apperror.NewValidation("product name is required")
	}
	if p.Quantity < 0 {
		return Product{}, apperror.NewValidation("quantity must not be negative")
	}

	items, _, err := s.store.List(ctx, owner, document.Inventory, true)
	if err != nil {
		return Product{}, err
	}
	p.ID = document.NextID(items)

	item, err := document.New(p.ID, p, domain.UserRef(ctx), time.Now())
	if err != nil {
		return Product{}, err
	}
	item.BranchID = p.BranchID
	if err := item.SyncPayload(); err != nil {
		return Product{}, err
	}
	if err := s.store.Put(ctx, owner, document.Inventory, item); err != nil {
		return Product{}, err
	}
	logger.Info(ctx, "product added", "owner", owner, "id", p.ID, "name", p.Name)
	return p, nil
}

// Update overwrites an existing product's fields, keeping its id and
// creation audit fields.
func (s *Service) Update(ctx context.Context, owner string, p Product) error {
	existing, err := s.store.Get(ctx, owner, document.Inventory, p.ID)
	if err != nil {
		return err
	}
	if existing.IsDeleted() {
		return apperror.NewNotFound("product", p.ID)
	}

	item, err := document.New(p.ID, p, domain.UserRef(ctx), time.Now())
	if err != nil {
		return err
	}
	item.BranchID = p.BranchID
	item.CreatedAt = existing.CreatedAt
	item.CreatedBy = existing.CreatedBy
	if err := item.SyncPayload(); err != nil {
		return err
	}
	return s.store.Put(ctx, owner, document.Inventory, item)
}

// Delete tombstones a product. The record stays restorable.
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	item, err := s.store.Get(ctx, owner, document.Inventory, id)
	if err != nil {
		return err
	}
	if item.IsDeleted() {
		return nil
	}
	by := document.UserRef{}
	if ref := domain.UserRef(ctx); ref != nil {
		by = *ref
	}
	if err := item.Tombstone(by, time.Now()); err != nil {
		return err
	}
	return s.store.Put(ctx, owner, document.Inventory, item)
}

// Adjust applies a manual stock change and records the adjustment.
// The resulting stock level must not go negative.
func (s *Service) Adjust(ctx context.Context, owner string, productID int64, delta int, reason string) (StockAdjustment, error) {
	item, err := s.store.Get(ctx, owner, document.Inventory, productID)
	if err != nil {
		return StockAdjustment{}, err
	}
	if item.IsDeleted() {
		return StockAdjustment{}, apperror.NewNotFound("product", productID)
	}
	var p Product
	if err := item.Decode(&p); err != nil {
		return StockAdjustment{}, err
	}

	newStock := p.Quantity + delta
	if newStock < 0 {
		return StockAdjustment{}, apperror.NewInsufficientStock(productID, float64(-delta), float64(p.Quantity))
	}

	adj := StockAdjustment{
		ProductID:     productID,
		Quantity:      delta,
		PreviousStock: p.Quantity,
		NewStock:      newStock,
		Reason:        reason,
		BranchID:      p.BranchID,
		Timestamp:     time.Now().UTC(),
	}

	adjustments, _, err := s.store.List(ctx, owner, document.StockAdjustments, true)
	if err != nil {
		return StockAdjustment{}, err
	}
	adj.ID = document.NextID(adjustments)

	adjItem, err := document.New(adj.ID, adj, domain.UserRef(ctx), time.Now())
	if err != nil {
		return StockAdjustment{}, err
	}
	if err := s.store.Put(ctx, owner, document.StockAdjustments, adjItem); err != nil {
		return StockAdjustment{}, err
	}

	p.ID = productID
	p.Quantity = newStock
	if err := s.Update(ctx, owner, p); err != nil {
		return StockAdjustment{}, err
	}
	logger.Info(ctx, "stock adjusted",
		"owner", owner, "product", productID, "delta", delta, "newStock", newStock)
	return adj, nil
}

// LowStock returns active products at or below the given level,
// using each product's own reorder level when set.
func (s *Service) LowStock(ctx context.Context, owner string, defaultLevel int) ([]Product, error) {
	products, err := s.List(ctx, owner, "")
	if err != nil {
		return nil, err
	}
	low := make([]Product, 0)
	for _, p := range products {
		level := defaultLevel
		if p.ReorderLevel > 0 {
			level = p.ReorderLevel
		}
		if p.Quantity <= level {
			low = append(low, p)
		}
	}
	return low, nil
}

// Package reports aggregates sales and stock figures over the
// storage read APIs.
package reports

import (
	"context"
	"time"

	"whiskeyballet/internal/core/types"
	"whiskeyballet/internal/domain/inventory"
	"whiskeyballet/internal/domain/sales"
	"whiskeyballet/internal/domain/settings"
)

// SalesSummary is the aggregate over one branch (or all branches)
// for a time window.
type SalesSummary struct {
	BranchID         string                 `json:"branchId,omitempty"`
	From             time.Time              `json:"from"`
	To               time.Time              `json:"to"`
	TransactionCount int                    `json:"transactionCount"`
	Total            types.Money            `json:"total"`
	PendingCount     int                    `json:"pendingCount"`
	ByMethod         map[string]types.Money `json:"byMethod"`
}

// Service produces read-only aggregates.
type Service struct {
	sales     *sales.Service
	inventory *inventory.Service
	settings  *settings.Service
}

func NewService(sl *sales.Service, inv *inventory.Service, cfg *settings.Service) *Service {
	return &Service{sales: sl, inventory: inv, settings: cfg}
}

// SalesByBranch totals transactions for one branch inside [from, to].
// An empty branch covers the whole tenant.
func (s *Service) SalesByBranch(ctx context.Context, owner, branchID string, from, to time.Time) (SalesSummary, error) {
	txs, err := s.sales.List(ctx, owner, branchID)
	if err != nil {
		return SalesSummary{}, err
	}

	summary := SalesSummary{
		BranchID: branchID,
		From:     from,
		To:       to,
		Total:    types.Zero(),
		ByMethod: make(map[string]types.Money),
	}
	for _, t := range txs {
		if t.Timestamp.Before(from) || t.Timestamp.After(to) {
			continue
		}
		summary.TransactionCount++
		summary.Total = summary.Total.Add(t.Total)
		if t.PaymentStatus == "pending" {
			summary.PendingCount++
		}
		existing, ok := summary.ByMethod[t.PaymentMethod]
		if !ok {
			existing = types.Zero()
		}
		summary.ByMethod[t.PaymentMethod] = existing.Add(t.Total)
	}
	return summary, nil
}

// LowStock lists products at or below the tenant's reorder level.
func (s *Service) LowStock(ctx context.Context, owner string) ([]inventory.Product, error) {
	cfg, err := s.settings.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.inventory.LowStock(ctx, owner, cfg.LowStockLevel)
}

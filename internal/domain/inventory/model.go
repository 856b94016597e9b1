package inventory

import (
	"time"

	"whiskeyballet/internal/core/types"
)

// Product is one stocked item.
type Product struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	SKU          string      `json:"sku,omitempty"`
	Barcode      string      `json:"barcode,omitempty"`
	Category     string      `json:"category,omitempty"`
	Price        types.Money `json:"price"`
	CostPrice    types.Money `json:"costPrice,omitempty"`
	Quantity     int         `json:"quantity"`
	ReorderLevel int         `json:"reorderLevel,omitempty"`
	ExpiryDate   *time.Time  `json:"expiryDate,omitempty"`
	BranchID     string      `json:"branchId,omitempty"`
}

// StockAdjustment records a manual quantity change. NewStock must
// equal PreviousStock + Quantity.
type StockAdjustment struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"productId"`
	Quantity      int       `json:"quantity"`
	PreviousStock int       `json:"previousStock"`
	NewStock      int       `json:"newStock"`
	Reason        string    `json:"reason,omitempty"`
	BranchID      string    `json:"branchId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

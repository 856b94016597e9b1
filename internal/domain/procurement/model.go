package procurement

import (
	"time"

	"whiskeyballet/internal/core/types"
)

// Purchase order lifecycle.
const (
	OrderStatusDraft    = "draft"
	OrderStatusOrdered  = "ordered"
	OrderStatusPartial  = "partially_received"
	OrderStatusReceived = "received"
	OrderStatusClosed   = "closed"
)

// Supplier is a goods vendor.
type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	KRAPin  string `json:"kraPin,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderLine is one product line on a purchase order.
type OrderLine struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitCost  types.Money `json:"unitCost"`
}

// PurchaseOrder is an order placed with a supplier.
type PurchaseOrder struct {
	ID         int64       `json:"id"`
	SupplierID int64       `json:"supplierId"`
	Lines      []OrderLine `json:"lines"`
	Total      types.Money `json:"total"`
	Status     string      `json:"status"`
	BranchID   string      `json:"branchId,omitempty"`
	OrderedAt  time.Time   `json:"orderedAt"`
}

// ReceivedLine is one delivered line on a goods received note.
type ReceivedLine struct {
	ProductID int64 `json:"productId"`
	Ordered   int   `json:"ordered"`
	Received  int   `json:"received"`
}

// GoodsReceivedNote records a delivery against a purchase order.
type GoodsReceivedNote struct {
	ID         int64          `json:"id"`
	OrderID    int64          `json:"orderId"`
	SupplierID int64          `json:"supplierId"`
	Lines      []ReceivedLine `json:"lines"`
	ReceivedAt time.Time      `json:"receivedAt"`
	Notes      string         `json:"notes,omitempty"`
}

// SupplierPayment records money paid to a supplier.
type SupplierPayment struct {
	ID         int64       `json:"id"`
	SupplierID int64       `json:"supplierId"`
	OrderID    int64       `json:"orderId,omitempty"`
	Amount     types.Money `json:"amount"`
	Method     string      `json:"method"`
	Reference  string      `json:"reference,omitempty"`
	PaidAt     time.Time   `json:"paidAt"`
}

package sales

import (
	"time"

	"whiskeyballet/internal/core/types"
)

// Payment methods accepted at the till.
const (
	MethodCash   = "cash"
	MethodMpesa  = "mpesa"
	MethodCard   = "card"
	MethodCredit = "credit"
)

// LineItem is one product line on a receipt.
type LineItem struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	Price     types.Money `json:"price"`
	Subtotal  types.Money `json:"subtotal"`
}

// Transaction is a completed sale.
type Transaction struct {
	ID            int64       `json:"id"`
	Items         []LineItem  `json:"items"`
	Total         types.Money `json:"total"`
	VATAmount     types.Money `json:"vatAmount,omitempty"`
	PaymentMethod string      `json:"paymentMethod"`
	PaymentStatus string      `json:"paymentStatus"`
	CustomerID    int64       `json:"customerId,omitempty"`
	CashierID     string      `json:"cashierId,omitempty"`
	BranchID      string      `json:"branchId,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

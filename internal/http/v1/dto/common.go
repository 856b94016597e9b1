// Package dto defines the wire shapes for the v1 API.
package dto

import "time"

// IDResponse is the standard creation response.
type IDResponse struct {
	ID int64 `json:"id"`
}

// SuccessResponse is the standard operation acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// LoginRequest is the credentials payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest creates a tenant user.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	BranchID string `json:"branchId"`
}

// AdjustStockRequest applies a manual stock delta.
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Reason   string `json:"reason"`
}

// RestoreRangeRequest restores tombstoned documents inside a window.
type RestoreRangeRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// SettleRequest marks a credit sale as paid.
type SettleRequest struct {
	TransactionID int64 `json:"transactionId" binding:"required"`
}

package auth

import "time"

// Roles a tenant user can hold.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// User is a tenant account member. Users are stored per tenant in
// the per-user document bucket, not in the shared collections.
type User struct {
	ID           string     `json:"id"`
	AdminID      string     `json:"adminId"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	Role         string     `json:"role"`
	BranchID     string     `json:"branchId,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

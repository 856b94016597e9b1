// Package domain holds helpers shared by the domain services.
package domain

import (
	"context"

	appctx "whiskeyballet/internal/core/context"
	"whiskeyballet/internal/core/document"
)

// UserRef snapshots the acting user from the request context for
// document audit fields. Nil when the context carries no user.
func UserRef(ctx context.Context) *document.UserRef {
	u := appctx.GetUser(ctx)
	if u == nil {
		return nil
	}
	return &document.UserRef{ID: u.UserID, Name: u.Name, Role: u.Role}
}

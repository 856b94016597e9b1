package handlers

import (
	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/migrate"
	"whiskeyballet/internal/storage"
)

// AdminHandler serves destructive and migration operations. All
// routes behind RequireAdmin.
type AdminHandler struct {
	*BaseHandler
	bulk  *migrate.Bulk
	store storage.Collections
}

func NewAdminHandler(base *BaseHandler, bulk *migrate.Bulk, store storage.Collections) *AdminHandler {
	return &AdminHandler{BaseHandler: base, bulk: bulk, store: store}
}

// Migrate handles POST /v1/admin/migrate: copies the tenant's data
// from the legacy store into the indexed store.
func (h *AdminHandler) Migrate(c *gin.Context) {
	result, err := h.bulk.MigrateOwner(c.Request.Context(), h.Owner(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Verify handles GET /v1/admin/migrate/verify: diffs per-collection
// counts between the stores.
func (h *AdminHandler) Verify(c *gin.Context) {
	diffs, err := h.bulk.Verify(c.Request.Context(), h.Owner(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"parity": len(diffs) == 0, "diffs": diffs})
}

// Commit handles POST /v1/admin/migrate/commit: routes the tenant to
// the indexed store.
func (h *AdminHandler) Commit(c *gin.Context) {
	if err := h.bulk.Commit(c.Request.Context(), h.Owner(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "indexed store enabled")
}

// Rollback handles POST /v1/admin/migrate/rollback: routes the
// tenant back to the legacy store without touching the indexed copy.
func (h *AdminHandler) Rollback(c *gin.Context) {
	if err := h.bulk.Rollback(c.Request.Context(), h.Owner(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "rolled back to legacy store")
}

// ClearData handles POST /v1/admin/clear-data, the only physical
// delete in the system.
func (h *AdminHandler) ClearData(c *gin.Context) {
	if err := h.store.Wipe(c.Request.Context(), h.Owner(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "all data cleared")
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/http/v1/dto"
	"whiskeyballet/internal/recovery"
)

// RecoveryHandler serves the soft-delete restore surface.
type RecoveryHandler struct {
	*BaseHandler
	manager *recovery.Manager
}

func NewRecoveryHandler(base *BaseHandler, manager *recovery.Manager) *RecoveryHandler {
	return &RecoveryHandler{BaseHandler: base, manager: manager}
}

// Deleted handles GET /v1/recovery/:collection
func (h *RecoveryHandler) Deleted(c *gin.Context) {
	collection := c.Param("collection")
	if !document.IsCollection(collection) {
		h.Error(c, apperror.NewValidation("unknown collection").WithDetail("collection", collection))
		return
	}
	items, err := h.manager.DeletedItems(c.Request.Context(), h.Owner(c), collection)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, items)
}

// Sessions handles GET /v1/recovery/:collection/sessions
func (h *RecoveryHandler) Sessions(c *gin.Context) {
	collection := c.Param("collection")
	if !document.IsCollection(collection) {
		h.Error(c, apperror.NewValidation("unknown collection").WithDetail("collection", collection))
		return
	}
	sessions, err := h.manager.DeletedSessions(c.Request.Context(), h.Owner(c), collection)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sessions)
}

// RestoreItem handles POST /v1/recovery/:collection/:id
func (h *RecoveryHandler) RestoreItem(c *gin.Context) {
	collection := c.Param("collection")
	if !document.IsCollection(collection) {
		h.Error(c, apperror.NewValidation("unknown collection").WithDetail("collection", collection))
		return
	}
	id, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	restored, err := h.manager.RestoreItem(c.Request.Context(), h.Owner(c), collection, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"restored": restored})
}

// RestoreRange handles POST /v1/recovery/restore-range
func (h *RecoveryHandler) RestoreRange(c *gin.Context) {
	var req dto.RestoreRangeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	report, err := h.manager.RestoreAllByTimeRange(c.Request.Context(), h.Owner(c), req.Start, req.End)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

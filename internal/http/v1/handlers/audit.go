package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/audit"
	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
)

// AuditHandler serves per-document change history. Only mounted when
// the indexed store is active.
type AuditHandler struct {
	*BaseHandler
	recorder *audit.Recorder
}

func NewAuditHandler(base *BaseHandler, recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{BaseHandler: base, recorder: recorder}
}

// History handles GET /audit/:collection/:id?limit=50.
func (h *AuditHandler) History(c *gin.Context) {
	collection := c.Param("collection")
	if !document.IsCollection(collection) {
		h.Error(c, apperror.NewValidation("unknown collection").WithDetail("collection", collection))
		return
	}
	id, ok := h.ParseIDParam(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.Error(c, apperror.NewValidation("limit must be between 1 and 500"))
			return
		}
		limit = parsed
	}

	entries, err := h.recorder.History(c.Request.Context(), h.Owner(c), collection, id, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}

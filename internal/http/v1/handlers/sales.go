package handlers

import (
	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/domain/sales"
	"whiskeyballet/internal/http/v1/dto"
)

// SalesHandler serves transaction recording and history.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
}

func NewSalesHandler(base *BaseHandler, service *sales.Service) *SalesHandler {
	return &SalesHandler{BaseHandler: base, service: service}
}

// List handles GET /v1/transactions?branch=...
func (h *SalesHandler) List(c *gin.Context) {
	txs, err := h.service.List(c.Request.Context(), h.Owner(c), c.Query("branch"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, txs)
}

// Record handles POST /v1/transactions
func (h *SalesHandler) Record(c *gin.Context) {
	var t sales.Transaction
	if !h.BindJSON(c, &t) {
		return
	}
	recorded, err := h.service.Record(c.Request.Context(), h.Owner(c), t)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, recorded)
}

// Settle handles POST /v1/transactions/settle
func (h *SalesHandler) Settle(c *gin.Context) {
	var req dto.SettleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.service.SettleCredit(c.Request.Context(), h.Owner(c), req.TransactionID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "transaction settled")
}

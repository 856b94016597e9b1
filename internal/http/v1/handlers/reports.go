package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/domain/reports"
)

// ReportsHandler serves read-only aggregates.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// Sales handles GET /v1/reports/sales?branch=...&from=...&to=...
func (h *ReportsHandler) Sales(c *gin.Context) {
	from, to, err := parseWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		h.Error(c, err)
		return
	}
	summary, err := h.service.SalesByBranch(c.Request.Context(), h.Owner(c), c.Query("branch"), from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// LowStock handles GET /v1/reports/low-stock
func (h *ReportsHandler) LowStock(c *gin.Context) {
	products, err := h.service.LowStock(c.Request.Context(), h.Owner(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, products)
}

// parseWindow defaults to the last 30 days when bounds are omitted.
func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return from, to, apperror.NewValidation("invalid from timestamp").WithDetail("from", fromStr)
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return from, to, apperror.NewValidation("invalid to timestamp").WithDetail("to", toStr)
		}
		to = parsed
	}
	return from, to, nil
}

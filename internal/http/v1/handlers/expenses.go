package handlers

import (
	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/domain/expenses"
)

// ExpensesHandler serves cash-flow entries.
type ExpensesHandler struct {
	*BaseHandler
	service *expenses.Service
}

func NewExpensesHandler(base *BaseHandler, service *expenses.Service) *ExpensesHandler {
	return &ExpensesHandler{BaseHandler: base, service: service}
}

// List handles GET /v1/expenses?branch=...
func (h *ExpensesHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), h.Owner(c), c.Query("branch"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}

// Create handles POST /v1/expenses. The response carries the
// over-limit alert when the spending rule fires.
func (h *ExpensesHandler) Create(c *gin.Context) {
	var e expenses.Expense
	if !h.BindJSON(c, &e) {
		return
	}
	result, err := h.service.Create(c.Request.Context(), h.Owner(c), e)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

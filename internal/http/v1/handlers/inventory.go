package handlers

import (
	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/domain/inventory"
	"whiskeyballet/internal/http/v1/dto"
)

// InventoryHandler serves the product catalog and stock operations.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

func NewInventoryHandler(base *BaseHandler, service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// List handles GET /v1/products?branch=...
func (h *InventoryHandler) List(c *gin.Context) {
	products, err := h.service.List(c.Request.Context(), h.Owner(c), c.Query("branch"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, products)
}

// Get handles GET /v1/products/:id
func (h *InventoryHandler) Get(c *gin.Context) {
	id, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	product, err := h.service.Get(c.Request.Context(), h.Owner(c), id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, product)
}

// Add handles POST /v1/products
func (h *InventoryHandler) Add(c *gin.Context) {
	var p inventory.Product
	if !h.BindJSON(c, &p) {
		return
	}
	created, err := h.service.Add(c.Request.Context(), h.Owner(c), p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created.ID)
}

// Update handles PUT /v1/products/:id
func (h *InventoryHandler) Update(c *gin.Context) {
	id, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	var p inventory.Product
	if !h.BindJSON(c, &p) {
		return
	}
	p.ID = id
	if err := h.service.Update(c.Request.Context(), h.Owner(c), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "product updated")
}

// Delete handles DELETE /v1/products/:id (soft delete).
func (h *InventoryHandler) Delete(c *gin.Context) {
	id, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), h.Owner(c), id); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Adjust handles POST /v1/products/:id/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	id, ok := h.ParseIDParam(c)
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	adj, err := h.service.Adjust(c.Request.Context(), h.Owner(c), id, req.Quantity, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, adj)
}

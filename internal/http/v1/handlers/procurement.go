package handlers

import (
	"github.com/gin-gonic/gin"

	"whiskeyballet/internal/domain/procurement"
)

// ProcurementHandler serves suppliers, purchase orders, deliveries
// and supplier payments.
type ProcurementHandler struct {
	*BaseHandler
	service *procurement.Service
}

func NewProcurementHandler(base *BaseHandler, service *procurement.Service) *ProcurementHandler {
	return &ProcurementHandler{BaseHandler: base, service: service}
}

// ListSuppliers handles GET /v1/suppliers
func (h *ProcurementHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.service.ListSuppliers(c.Request.Context(), h.Owner(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, suppliers)
}

// AddSupplier handles POST /v1/suppliers
func (h *ProcurementHandler) AddSupplier(c *gin.Context) {
	var sup procurement.Supplier
	if !h.BindJSON(c, &sup) {
		return
	}
	created, err := h.service.AddSupplier(c.Request.Context(), h.Owner(c), sup)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created.ID)
}

// CreateOrder handles POST /v1/purchase-orders
func (h *ProcurementHandler) CreateOrder(c *gin.Context) {
	var po procurement.PurchaseOrder
	if !h.BindJSON(c, &po) {
		return
	}
	created, err := h.service.CreateOrder(c.Request.Context(), h.Owner(c), po)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created.ID)
}

// ReceiveGoods handles POST /v1/goods-received
func (h *ProcurementHandler) ReceiveGoods(c *gin.Context) {
	var grn procurement.GoodsReceivedNote
	if !h.BindJSON(c, &grn) {
		return
	}
	created, err := h.service.ReceiveGoods(c.Request.Context(), h.Owner(c), grn)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created.ID)
}

// RecordPayment handles POST /v1/supplier-payments
func (h *ProcurementHandler) RecordPayment(c *gin.Context) {
	var pay procurement.SupplierPayment
	if !h.BindJSON(c, &pay) {
		return
	}
	created, err := h.service.RecordPayment(c.Request.Context(), h.Owner(c), pay)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created.ID)
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/sitebuy-backend/internal/api/dto"
	"github.com/eshaffer321/sitebuy-backend/internal/application/purchasing"
)

// PurchasingHandler serves purchase orders and deliveries.
type PurchasingHandler struct {
	*Base
	svc *purchasing.Service
}

// NewPurchasingHandler creates a new purchasing handler.
func NewPurchasingHandler(svc *purchasing.Service, logger *slog.Logger) *PurchasingHandler {
	return &PurchasingHandler{Base: NewBase(logger), svc: svc}
}

// CreatePurchaseOrder handles POST /api/purchase-orders.
func (h *PurchasingHandler) CreatePurchaseOrder(c *gin.Context) {
	var req dto.CreatePurchaseOrderRequest
	if !h.Bind(c, &req) {
		return
	}
	po, err := h.svc.CreatePurchaseOrder(c.Request.Context(), req.ToPurchaseOrder())
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusCreated, po)
}

// GetPurchaseOrder handles GET /api/purchase-orders/:id.
func (h *PurchasingHandler) GetPurchaseOrder(c *gin.Context) {
	po, err := h.svc.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, po)
}

// UpdateStatus handles POST /api/purchase-orders/:id/status.
func (h *PurchasingHandler) UpdateStatus(c *gin.Context) {
	var req dto.StatusRequest
	if !h.Bind(c, &req) {
		return
	}
	po, err := h.svc.TransitionStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, po)
}

// RecordDelivery handles POST /api/deliveries.
func (h *PurchasingHandler) RecordDelivery(c *gin.Context) {
	var req dto.RecordDeliveryRequest
	if !h.Bind(c, &req) {
		return
	}
	d, err := h.svc.RecordDelivery(c.Request.Context(), req.ToDelivery())
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusCreated, d)
}

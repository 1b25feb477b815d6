package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/sitebuy-backend/internal/api/dto"
	"github.com/eshaffer321/sitebuy-backend/internal/application/invoicing"
)

// InvoicesHandler serves invoice intake, matching and payment.
type InvoicesHandler struct {
	*Base
	svc *invoicing.Service
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(svc *invoicing.Service, logger *slog.Logger) *InvoicesHandler {
	return &InvoicesHandler{Base: NewBase(logger), svc: svc}
}

// Create handles POST /api/invoices. The invoice is matched immediately.
func (h *InvoicesHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.Bind(c, &req) {
		return
	}
	outcome, err := h.svc.CreateInvoice(c.Request.Context(), req.ToInvoice())
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusCreated, outcome)
}

// Get handles GET /api/invoices/:id.
func (h *InvoicesHandler) Get(c *gin.Context) {
	inv, err := h.svc.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, inv)
}

// History handles GET /api/invoices/:id/history.
func (h *InvoicesHandler) History(c *gin.Context) {
	id := c.Param("id")
	events, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, dto.InvoiceHistoryResponse{InvoiceID: id, Events: events})
}

// Match handles POST /api/invoices/:id/match.
func (h *InvoicesHandler) Match(c *gin.Context) {
	outcome, err := h.svc.Match(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, outcome)
}

// ManualMatch handles POST /api/invoices/:id/manual-match.
func (h *InvoicesHandler) ManualMatch(c *gin.Context) {
	var req dto.ManualMatchRequest
	if !h.Bind(c, &req) {
		return
	}
	outcome, err := h.svc.ManualMatch(c.Request.Context(), c.Param("id"), req.MatchedBy, req.Note)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, outcome)
}

// Pay handles POST /api/invoices/:id/pay.
func (h *InvoicesHandler) Pay(c *gin.Context) {
	var req dto.ActorRequest
	if !h.BindOptional(c, &req) {
		return
	}
	inv, err := h.svc.MarkPaid(c.Request.Context(), c.Param("id"), req.By)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, inv)
}

// Requeue handles POST /api/invoices/:id/requeue.
func (h *InvoicesHandler) Requeue(c *gin.Context) {
	var req dto.ActorRequest
	if !h.BindOptional(c, &req) {
		return
	}
	inv, err := h.svc.Requeue(c.Request.Context(), c.Param("id"), req.By)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, inv)
}

// Sweep handles POST /api/invoices/sweep, a one-off pass over the pending
// queue.
func (h *InvoicesHandler) Sweep(c *gin.Context) {
	result, err := h.svc.SweepPending(c.Request.Context())
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, result)
}

// GetTolerance handles GET /api/organizations/:id/tolerances.
func (h *InvoicesHandler) GetTolerance(c *gin.Context) {
	orgID := c.Param("id")
	tol, err := h.svc.Tolerance(c.Request.Context(), orgID)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, dto.ToleranceResponse{OrganizationID: orgID, Tolerance: tol})
}

// PutTolerance handles PUT /api/organizations/:id/tolerances.
func (h *InvoicesHandler) PutTolerance(c *gin.Context) {
	var req dto.ToleranceRequest
	if !h.Bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	orgID := c.Param("id")

	current, err := h.svc.Tolerance(ctx, orgID)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	tol := req.Apply(current)
	if err := h.svc.SetTolerance(ctx, orgID, tol); err != nil {
		h.WriteError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, dto.ToleranceResponse{OrganizationID: orgID, Tolerance: tol})
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/matcher"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// CreateInvoiceRequest is the body of POST /api/invoices.
type CreateInvoiceRequest struct {
	OrganizationID  string                    `json:"organization_id" binding:"required"`
	ProjectID       string                    `json:"project_id" binding:"required"`
	VendorID        string                    `json:"vendor_id"`
	Number          string                    `json:"number" binding:"required"`
	UploadedBy      string                    `json:"uploaded_by"`
	PurchaseOrderID string                    `json:"purchase_order_id"`
	DeliveryID      string                    `json:"delivery_id"`
	Subtotal        decimal.Decimal           `json:"subtotal"`
	TaxAmount       decimal.Decimal           `json:"tax_amount"`
	FreightAmount   decimal.Decimal           `json:"freight_amount"`
	TotalAmount     decimal.Decimal           `json:"total_amount"`
	Lines           []procurement.InvoiceLine `json:"lines"`
}

// ToInvoice converts the request into a new invoice record.
func (r *CreateInvoiceRequest) ToInvoice() *procurement.Invoice {
	return &procurement.Invoice{
		OrganizationID:  r.OrganizationID,
		ProjectID:       r.ProjectID,
		VendorID:        r.VendorID,
		Number:          r.Number,
		UploadedBy:      r.UploadedBy,
		PurchaseOrderID: r.PurchaseOrderID,
		DeliveryID:      r.DeliveryID,
		Subtotal:        r.Subtotal,
		TaxAmount:       r.TaxAmount,
		FreightAmount:   r.FreightAmount,
		TotalAmount:     r.TotalAmount,
		Lines:           r.Lines,
	}
}

// ManualMatchRequest is the body of POST /api/invoices/:id/manual-match.
type ManualMatchRequest struct {
	MatchedBy string `json:"matched_by" binding:"required"`
	Note      string `json:"note"`
}

// ActorRequest carries who performed a lifecycle action.
type ActorRequest struct {
	By string `json:"by"`
}

// CreatePurchaseOrderRequest is the body of POST /api/purchase-orders.
type CreatePurchaseOrderRequest struct {
	OrganizationID string                          `json:"organization_id" binding:"required"`
	ProjectID      string                          `json:"project_id" binding:"required"`
	VendorID       string                          `json:"vendor_id"`
	Number         string                          `json:"number" binding:"required"`
	Status         procurement.POStatus            `json:"status"`
	Subtotal       decimal.Decimal                 `json:"subtotal"`
	TaxAmount      decimal.Decimal                 `json:"tax_amount"`
	FreightAmount  decimal.Decimal                 `json:"freight_amount"`
	TotalAmount    decimal.Decimal                 `json:"total_amount"`
	Lines          []procurement.PurchaseOrderLine `json:"lines"`
}

// ToPurchaseOrder converts the request into a new PO record.
func (r *CreatePurchaseOrderRequest) ToPurchaseOrder() *procurement.PurchaseOrder {
	return &procurement.PurchaseOrder{
		OrganizationID: r.OrganizationID,
		ProjectID:      r.ProjectID,
		VendorID:       r.VendorID,
		Number:         r.Number,
		Status:         r.Status,
		Subtotal:       r.Subtotal,
		TaxAmount:      r.TaxAmount,
		FreightAmount:  r.FreightAmount,
		TotalAmount:    r.TotalAmount,
		Lines:          r.Lines,
	}
}

// StatusRequest is the body of POST /api/purchase-orders/:id/status.
type StatusRequest struct {
	Status procurement.POStatus `json:"status" binding:"required"`
}

// RecordDeliveryRequest is the body of POST /api/deliveries.
type RecordDeliveryRequest struct {
	PurchaseOrderID string                     `json:"purchase_order_id" binding:"required"`
	Status          procurement.DeliveryStatus `json:"status"`
	ReceivedAt      *time.Time                 `json:"received_at"`
	Lines           []procurement.DeliveryLine `json:"lines"`
}

// ToDelivery converts the request into a new delivery record.
func (r *RecordDeliveryRequest) ToDelivery() *procurement.Delivery {
	d := &procurement.Delivery{
		PurchaseOrderID: r.PurchaseOrderID,
		Status:          r.Status,
		Lines:           r.Lines,
	}
	if r.ReceivedAt != nil {
		d.ReceivedAt = *r.ReceivedAt
	}
	return d
}

// CreateEstimateRequest is the body of POST /api/contract-estimates.
type CreateEstimateRequest struct {
	ProjectID    string          `json:"project_id" binding:"required"`
	CostCode     string          `json:"cost_code" binding:"required"`
	Description  string          `json:"description"`
	AwardedValue decimal.Decimal `json:"awarded_value"`
}

// CreateMaterialRequest is the body of POST /api/materials.
type CreateMaterialRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	CostCode  string `json:"cost_code"`
}

// ToleranceRequest is the body of PUT /api/organizations/:id/tolerances.
// Omitted fields keep the organization's current value.
type ToleranceRequest struct {
	PricePercentage    *decimal.Decimal `json:"price_percentage"`
	QuantityPercentage *decimal.Decimal `json:"quantity_percentage"`
	TaxFreightCap      *decimal.Decimal `json:"tax_freight_cap"`
	DeliveryPercentage *decimal.Decimal `json:"delivery_percentage"`
}

// Apply overlays the provided fields onto current.
func (r *ToleranceRequest) Apply(current matcher.Tolerance) matcher.Tolerance {
	if r.PricePercentage != nil {
		current.PricePercentage = *r.PricePercentage
	}
	if r.QuantityPercentage != nil {
		current.QuantityPercentage = *r.QuantityPercentage
	}
	if r.TaxFreightCap != nil {
		current.TaxFreightCap = *r.TaxFreightCap
	}
	if r.DeliveryPercentage != nil {
		current.DeliveryPercentage = *r.DeliveryPercentage
	}
	return current
}

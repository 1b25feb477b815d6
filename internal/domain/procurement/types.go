// Package procurement defines the purchasing records that flow through the
// requisition -> purchase order -> delivery -> invoice pipeline.
//
// The match and forecast engines read these records; they never own or
// mutate them. Persisting engine output onto an Invoice is the caller's job.
package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// POStatus is the lifecycle status of a purchase order.
type POStatus string

const (
	POStatusDraft        POStatus = "draft"
	POStatusSent         POStatus = "sent"
	POStatusAcknowledged POStatus = "acknowledged"
	POStatusReceived     POStatus = "received"
	POStatusClosed       POStatus = "closed"
)

// IsCommitted reports whether a PO in this status counts as committed cost.
func (s POStatus) IsCommitted() bool {
	switch s {
	case POStatusSent, POStatusAcknowledged, POStatusReceived:
		return true
	}
	return false
}

// PurchaseOrder is a commitment to a vendor for a project.
type PurchaseOrder struct {
	ID             string              `json:"id"`
	OrganizationID string              `json:"organization_id"`
	ProjectID      string              `json:"project_id"`
	VendorID       string              `json:"vendor_id"`
	Number         string              `json:"number"`
	Status         POStatus            `json:"status"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	FreightAmount  decimal.Decimal     `json:"freight_amount"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	Lines          []PurchaseOrderLine `json:"lines"`
	CreatedAt      time.Time           `json:"created_at"`
}

// PurchaseOrderLine is one ordered item.
// MaterialID links to a project material; CostCode is set when the line was
// tagged directly.
type PurchaseOrderLine struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	MaterialID  string          `json:"material_id,omitempty"`
	CostCode    string          `json:"cost_code,omitempty"`
}

// Line returns the PO line with the given ID.
func (po *PurchaseOrder) Line(lineID string) (*PurchaseOrderLine, bool) {
	for i := range po.Lines {
		if po.Lines[i].ID == lineID {
			return &po.Lines[i], true
		}
	}
	return nil, false
}

// DeliveryStatus is the receiving status of a delivery.
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "pending"
	DeliveryStatusPartial  DeliveryStatus = "partial"
	DeliveryStatusComplete DeliveryStatus = "complete"
	DeliveryStatusDamaged  DeliveryStatus = "damaged"
)

// Delivery records physical receipt of goods against a purchase order.
type Delivery struct {
	ID              string         `json:"id"`
	PurchaseOrderID string         `json:"purchase_order_id"`
	Status          DeliveryStatus `json:"status"`
	ReceivedAt      time.Time      `json:"received_at"`
	Lines           []DeliveryLine `json:"lines"`
}

// DeliveryLine is the received quantity for one PO line.
type DeliveryLine struct {
	ID                  string          `json:"id"`
	PurchaseOrderLineID string          `json:"purchase_order_line_id,omitempty"`
	QuantityOrdered     decimal.Decimal `json:"quantity_ordered"`
	QuantityReceived    decimal.Decimal `json:"quantity_received"`
	QuantityDamaged     decimal.Decimal `json:"quantity_damaged"`
	DiscrepancyNotes    string          `json:"discrepancy_notes,omitempty"`
}

// InvoiceStatus is the accounts-payable lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusApproved  InvoiceStatus = "approved"
	InvoiceStatusException InvoiceStatus = "exception"
	InvoiceStatusPaid      InvoiceStatus = "paid"
)

// MatchStatus summarizes the outcome of the last three-way match.
type MatchStatus string

const (
	MatchStatusMatched         MatchStatus = "matched"
	MatchStatusPriceVariance   MatchStatus = "price_variance"
	MatchStatusQtyVariance     MatchStatus = "qty_variance"
	MatchStatusMissingPO       MatchStatus = "missing_po"
	MatchStatusTaxVariance     MatchStatus = "tax_variance"
	MatchStatusFreightVariance MatchStatus = "freight_variance"
)

// Invoice is a vendor bill.
type Invoice struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	ProjectID       string          `json:"project_id"`
	VendorID        string          `json:"vendor_id"`
	Number          string          `json:"number"`
	UploadedBy      string          `json:"uploaded_by,omitempty"`
	Status          InvoiceStatus   `json:"status"`
	PurchaseOrderID string          `json:"purchase_order_id,omitempty"`
	DeliveryID      string          `json:"delivery_id,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	FreightAmount   decimal.Decimal `json:"freight_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Lines           []InvoiceLine   `json:"lines,omitempty"`

	// Written back after each match.
	MatchStatus   MatchStatus     `json:"match_status,omitempty"`
	MatchVariance decimal.Decimal `json:"match_variance"`
	Exceptions    []Exception     `json:"exceptions"`
	MatchedAt     *time.Time      `json:"matched_at,omitempty"`
	MatchNote     string          `json:"match_note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasPurchaseOrder reports whether the invoice references a PO.
func (inv *Invoice) HasPurchaseOrder() bool {
	return inv.PurchaseOrderID != ""
}

// InvoiceLine is one billed item.
type InvoiceLine struct {
	SKU         string          `json:"sku,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ContractEstimate is a budget line for a project cost code.
// Several estimates may share a cost code; their awarded values sum.
type ContractEstimate struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	CostCode     string          `json:"cost_code"`
	Description  string          `json:"description,omitempty"`
	AwardedValue decimal.Decimal `json:"awarded_value"`
}

// Material is a project material; it carries the cost code its PO lines
// are attributed to.
type Material struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	CostCode  string `json:"cost_code"`
}

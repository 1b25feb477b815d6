package storage

import (
	"context"
	"errors"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/matcher"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	OrganizationRepository
	PurchaseOrderRepository
	DeliveryRepository
	InvoiceRepository
	EstimateRepository
	MaterialRepository
	Close() error
}

// OrganizationRepository stores per-organization match tolerances.
type OrganizationRepository interface {
	// GetTolerance returns ErrNotFound when the organization has no override
	GetTolerance(ctx context.Context, organizationID string) (*matcher.Tolerance, error)
	SaveTolerance(ctx context.Context, organizationID string, tol matcher.Tolerance) error
}

// PurchaseOrderRepository handles purchase orders and their lines.
type PurchaseOrderRepository interface {
	// SavePurchaseOrder inserts or replaces the order and all of its lines
	SavePurchaseOrder(ctx context.Context, po *procurement.PurchaseOrder) error
	GetPurchaseOrder(ctx context.Context, id string) (*procurement.PurchaseOrder, error)
	ListPurchaseOrdersByProject(ctx context.Context, projectID string) ([]procurement.PurchaseOrder, error)
}

// DeliveryRepository handles goods receipts.
type DeliveryRepository interface {
	SaveDelivery(ctx context.Context, d *procurement.Delivery) error
	ListDeliveriesByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]procurement.Delivery, error)
	ListDeliveriesByProject(ctx context.Context, projectID string) ([]procurement.Delivery, error)
}

// InvoiceRepository handles invoices and their status history.
type InvoiceRepository interface {
	SaveInvoice(ctx context.Context, inv *procurement.Invoice) error
	// SaveInvoiceIfStatus updates an existing invoice only while its stored
	// status still equals expected. It returns ErrNotFound for an unknown
	// invoice and procurement.ErrInvalidTransition when another writer
	// changed the status first.
	SaveInvoiceIfStatus(ctx context.Context, inv *procurement.Invoice, expected procurement.InvoiceStatus) error
	GetInvoice(ctx context.Context, id string) (*procurement.Invoice, error)
	ListInvoicesByStatus(ctx context.Context, status procurement.InvoiceStatus) ([]procurement.Invoice, error)
	ListInvoicesByProject(ctx context.Context, projectID string) ([]procurement.Invoice, error)

	// RecordInvoiceEvent appends to the invoice's audit trail
	RecordInvoiceEvent(ctx context.Context, event *InvoiceEvent) error
	ListInvoiceEvents(ctx context.Context, invoiceID string) ([]InvoiceEvent, error)
}

// EstimateRepository handles contract estimates (cost code budgets).
type EstimateRepository interface {
	SaveContractEstimate(ctx context.Context, est *procurement.ContractEstimate) error
	ListContractEstimates(ctx context.Context, projectID string) ([]procurement.ContractEstimate, error)
}

// MaterialRepository handles project materials.
type MaterialRepository interface {
	SaveMaterial(ctx context.Context, m *procurement.Material) error
	ListMaterials(ctx context.Context, projectID string) ([]procurement.Material, error)
}

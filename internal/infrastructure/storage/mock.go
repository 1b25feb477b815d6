package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/matcher"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
// It is safe for concurrent use so sweep tests can run against it.
type MockRepository struct {
	mu sync.Mutex

	tolerances     map[string]matcher.Tolerance
	purchaseOrders map[string]*procurement.PurchaseOrder
	poOrder        []string
	deliveries     map[string]*procurement.Delivery
	deliveryOrder  []string
	invoices       map[string]*procurement.Invoice
	invoiceOrder   []string
	events         []InvoiceEvent
	estimates      map[string]*procurement.ContractEstimate
	estimateOrder  []string
	materials      map[string]*procurement.Material
	materialOrder  []string
	nextEventID    int64

	// Hooks for test assertions
	SaveInvoiceCalls int
	LastSavedInvoice *procurement.Invoice

	// Error injection for testing error paths
	SaveInvoiceErr   error
	GetInvoiceErr    error
	ListInvoicesErr  error
	GetPOErr         error
	ListDeliveryErr  error
	GetToleranceErr  error
	RecordEventErr   error
	ListEstimatesErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		tolerances:     make(map[string]matcher.Tolerance),
		purchaseOrders: make(map[string]*procurement.PurchaseOrder),
		deliveries:     make(map[string]*procurement.Delivery),
		invoices:       make(map[string]*procurement.Invoice),
		estimates:      make(map[string]*procurement.ContractEstimate),
		materials:      make(map[string]*procurement.Material),
		nextEventID:    1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

func remember(order []string, id string, exists bool) []string {
	if exists {
		return order
	}
	return append(order, id)
}

func copyPO(po *procurement.PurchaseOrder) *procurement.PurchaseOrder {
	c := *po
	c.Lines = append([]procurement.PurchaseOrderLine(nil), po.Lines...)
	return &c
}

func copyDelivery(d *procurement.Delivery) *procurement.Delivery {
	c := *d
	c.Lines = append([]procurement.DeliveryLine(nil), d.Lines...)
	return &c
}

func copyInvoice(inv *procurement.Invoice) *procurement.Invoice {
	c := *inv
	c.Lines = append([]procurement.InvoiceLine(nil), inv.Lines...)
	c.Exceptions = append([]procurement.Exception(nil), inv.Exceptions...)
	if inv.MatchedAt != nil {
		t := *inv.MatchedAt
		c.MatchedAt = &t
	}
	return &c
}

// GetTolerance returns the stored override or ErrNotFound
func (m *MockRepository) GetTolerance(_ context.Context, organizationID string) (*matcher.Tolerance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetToleranceErr != nil {
		return nil, m.GetToleranceErr
	}
	tol, ok := m.tolerances[organizationID]
	if !ok {
		return nil, fmt.Errorf("organization settings %s: %w", organizationID, ErrNotFound)
	}
	return &tol, nil
}

// SaveTolerance stores an override
func (m *MockRepository) SaveTolerance(_ context.Context, organizationID string, tol matcher.Tolerance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tolerances[organizationID] = tol
	return nil
}

// SavePurchaseOrder stores a copy of po
func (m *MockRepository) SavePurchaseOrder(_ context.Context, po *procurement.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now()
	}
	_, exists := m.purchaseOrders[po.ID]
	m.poOrder = remember(m.poOrder, po.ID, exists)
	m.purchaseOrders[po.ID] = copyPO(po)
	return nil
}

// GetPurchaseOrder returns a copy of the stored PO
func (m *MockRepository) GetPurchaseOrder(_ context.Context, id string) (*procurement.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetPOErr != nil {
		return nil, m.GetPOErr
	}
	po, ok := m.purchaseOrders[id]
	if !ok {
		return nil, fmt.Errorf("purchase order %s: %w", id, ErrNotFound)
	}
	return copyPO(po), nil
}

// ListPurchaseOrdersByProject returns POs in insertion order
func (m *MockRepository) ListPurchaseOrdersByProject(_ context.Context, projectID string) ([]procurement.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []procurement.PurchaseOrder
	for _, id := range m.poOrder {
		if po := m.purchaseOrders[id]; po.ProjectID == projectID {
			out = append(out, *copyPO(po))
		}
	}
	return out, nil
}

// SaveDelivery stores a copy of d
func (m *MockRepository) SaveDelivery(_ context.Context, d *procurement.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.deliveries[d.ID]
	m.deliveryOrder = remember(m.deliveryOrder, d.ID, exists)
	m.deliveries[d.ID] = copyDelivery(d)
	return nil
}

// ListDeliveriesByPurchaseOrder returns deliveries against a PO
func (m *MockRepository) ListDeliveriesByPurchaseOrder(_ context.Context, purchaseOrderID string) ([]procurement.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListDeliveryErr != nil {
		return nil, m.ListDeliveryErr
	}
	var out []procurement.Delivery
	for _, id := range m.deliveryOrder {
		if d := m.deliveries[id]; d.PurchaseOrderID == purchaseOrderID {
			out = append(out, *copyDelivery(d))
		}
	}
	return out, nil
}

// ListDeliveriesByProject returns deliveries whose PO belongs to the project
func (m *MockRepository) ListDeliveriesByProject(_ context.Context, projectID string) ([]procurement.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListDeliveryErr != nil {
		return nil, m.ListDeliveryErr
	}
	var out []procurement.Delivery
	for _, id := range m.deliveryOrder {
		d := m.deliveries[id]
		if po, ok := m.purchaseOrders[d.PurchaseOrderID]; ok && po.ProjectID == projectID {
			out = append(out, *copyDelivery(d))
		}
	}
	return out, nil
}

// SaveInvoice stores a copy of inv
func (m *MockRepository) SaveInvoice(_ context.Context, inv *procurement.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveInvoiceCalls++
	m.LastSavedInvoice = copyInvoice(inv)
	if m.SaveInvoiceErr != nil {
		return m.SaveInvoiceErr
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	_, exists := m.invoices[inv.ID]
	m.invoiceOrder = remember(m.invoiceOrder, inv.ID, exists)
	m.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

// SaveInvoiceIfStatus stores a copy of inv when the stored status matches
func (m *MockRepository) SaveInvoiceIfStatus(_ context.Context, inv *procurement.Invoice, expected procurement.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveInvoiceCalls++
	m.LastSavedInvoice = copyInvoice(inv)
	if m.SaveInvoiceErr != nil {
		return m.SaveInvoiceErr
	}
	stored, ok := m.invoices[inv.ID]
	if !ok {
		return fmt.Errorf("invoice %s: %w", inv.ID, ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("%w: invoice %s is %s, expected %s",
			procurement.ErrInvalidTransition, inv.ID, stored.Status, expected)
	}
	m.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

// GetInvoice returns a copy of the stored invoice
func (m *MockRepository) GetInvoice(_ context.Context, id string) (*procurement.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetInvoiceErr != nil {
		return nil, m.GetInvoiceErr
	}
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (m *MockRepository) filterInvoices(keep func(*procurement.Invoice) bool) ([]procurement.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListInvoicesErr != nil {
		return nil, m.ListInvoicesErr
	}
	var out []procurement.Invoice
	for _, id := range m.invoiceOrder {
		if inv := m.invoices[id]; keep(inv) {
			out = append(out, *copyInvoice(inv))
		}
	}
	return out, nil
}

// ListInvoicesByStatus returns invoices in a status
func (m *MockRepository) ListInvoicesByStatus(_ context.Context, status procurement.InvoiceStatus) ([]procurement.Invoice, error) {
	return m.filterInvoices(func(inv *procurement.Invoice) bool { return inv.Status == status })
}

// ListInvoicesByProject returns a project's invoices
func (m *MockRepository) ListInvoicesByProject(_ context.Context, projectID string) ([]procurement.Invoice, error) {
	return m.filterInvoices(func(inv *procurement.Invoice) bool { return inv.ProjectID == projectID })
}

// RecordInvoiceEvent appends an event
func (m *MockRepository) RecordInvoiceEvent(_ context.Context, event *InvoiceEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordEventErr != nil {
		return m.RecordEventErr
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.ID = m.nextEventID
	m.nextEventID++
	m.events = append(m.events, *event)
	return nil
}

// ListInvoiceEvents returns an invoice's events
func (m *MockRepository) ListInvoiceEvents(_ context.Context, invoiceID string) ([]InvoiceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []InvoiceEvent
	for _, e := range m.events {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

// SaveContractEstimate stores a copy of est
func (m *MockRepository) SaveContractEstimate(_ context.Context, est *procurement.ContractEstimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.estimates[est.ID]
	m.estimateOrder = remember(m.estimateOrder, est.ID, exists)
	c := *est
	m.estimates[est.ID] = &c
	return nil
}

// ListContractEstimates returns a project's estimates
func (m *MockRepository) ListContractEstimates(_ context.Context, projectID string) ([]procurement.ContractEstimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListEstimatesErr != nil {
		return nil, m.ListEstimatesErr
	}
	var out []procurement.ContractEstimate
	for _, id := range m.estimateOrder {
		if e := m.estimates[id]; e.ProjectID == projectID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// SaveMaterial stores a copy of mat
func (m *MockRepository) SaveMaterial(_ context.Context, mat *procurement.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.materials[mat.ID]
	m.materialOrder = remember(m.materialOrder, mat.ID, exists)
	c := *mat
	m.materials[mat.ID] = &c
	return nil
}

// ListMaterials returns a project's materials
func (m *MockRepository) ListMaterials(_ context.Context, projectID string) ([]procurement.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []procurement.Material
	for _, id := range m.materialOrder {
		if mat := m.materials[id]; mat.ProjectID == projectID {
			out = append(out, *mat)
		}
	}
	return out, nil
}

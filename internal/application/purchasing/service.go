// Package purchasing records purchase orders and the deliveries received
// against them.
package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/storage"
)

// Service manages purchase orders and deliveries.
type Service struct {
	repo   storage.Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a purchasing service. now may be nil.
func NewService(repo storage.Repository, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, logger: logger, now: now}
}

var knownPOStatuses = map[procurement.POStatus]bool{
	procurement.POStatusDraft:        true,
	procurement.POStatusSent:         true,
	procurement.POStatusAcknowledged: true,
	procurement.POStatusReceived:     true,
	procurement.POStatusClosed:       true,
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", procurement.ErrValidation, fmt.Sprintf(format, args...))
}

// CreatePurchaseOrder stores a new PO. Missing IDs are generated, the status
// defaults to draft, and zero totals are derived from the lines.
func (s *Service) CreatePurchaseOrder(ctx context.Context, po *procurement.PurchaseOrder) (*procurement.PurchaseOrder, error) {
	switch {
	case po.OrganizationID == "":
		return nil, invalid("organization_id is required")
	case po.ProjectID == "":
		return nil, invalid("project_id is required")
	case po.Number == "":
		return nil, invalid("number is required")
	}
	if po.Status == "" {
		po.Status = procurement.POStatusDraft
	}
	if !knownPOStatuses[po.Status] {
		return nil, invalid("unknown status %q", po.Status)
	}
	if po.ID == "" {
		po.ID = uuid.NewString()
	}

	lineSum := decimal.Zero
	for i := range po.Lines {
		line := &po.Lines[i]
		if line.Quantity.IsNegative() || line.UnitPrice.IsNegative() {
			return nil, invalid("line %d: quantity and unit_price must not be negative", i+1)
		}
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		if line.LineTotal.IsZero() {
			line.LineTotal = money.Mul(line.Quantity, line.UnitPrice)
		}
		lineSum = money.Add(lineSum, line.LineTotal)
	}
	if po.Subtotal.IsZero() {
		po.Subtotal = lineSum
	}
	if po.TotalAmount.IsZero() {
		po.TotalAmount = money.Sum(po.Subtotal, po.TaxAmount, po.FreightAmount)
	}
	if po.TotalAmount.IsNegative() {
		return nil, invalid("total_amount must not be negative")
	}
	if po.CreatedAt.IsZero() {
		po.CreatedAt = s.now()
	}

	if err := s.repo.SavePurchaseOrder(ctx, po); err != nil {
		return nil, err
	}
	s.logger.Info("purchase order created", "purchase_order_id", po.ID, "number", po.Number,
		"status", po.Status, "lines", len(po.Lines), "total", po.TotalAmount)
	return po, nil
}

// GetPurchaseOrder loads a PO with its lines.
func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (*procurement.PurchaseOrder, error) {
	return s.repo.GetPurchaseOrder(ctx, id)
}

// TransitionStatus moves a PO through draft -> sent -> acknowledged ->
// received -> closed.
func (s *Service) TransitionStatus(ctx context.Context, id string, to procurement.POStatus) (*procurement.PurchaseOrder, error) {
	if !knownPOStatuses[to] {
		return nil, invalid("unknown status %q", to)
	}
	po, err := s.repo.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	from := po.Status
	if err := procurement.TransitionPurchaseOrder(po, to); err != nil {
		return nil, err
	}
	if err := s.repo.SavePurchaseOrder(ctx, po); err != nil {
		return nil, err
	}
	s.logger.Info("purchase order status changed", "purchase_order_id", po.ID, "from", from, "to", to)
	return po, nil
}

// RecordDelivery stores a receipt against an existing PO. Each line must
// reference a line of that PO. Ordered quantities default to the PO line's
// quantity and an empty status is derived from the received quantities.
// A complete delivery on a sent or acknowledged PO marks it received.
func (s *Service) RecordDelivery(ctx context.Context, d *procurement.Delivery) (*procurement.Delivery, error) {
	if d.PurchaseOrderID == "" {
		return nil, invalid("purchase_order_id is required")
	}
	po, err := s.repo.GetPurchaseOrder(ctx, d.PurchaseOrderID)
	if err != nil {
		return nil, err
	}

	complete := len(d.Lines) > 0
	for i := range d.Lines {
		line := &d.Lines[i]
		pol, ok := po.Line(line.PurchaseOrderLineID)
		if !ok {
			return nil, invalid("line %d: purchase order %s has no line %q", i+1, po.Number, line.PurchaseOrderLineID)
		}
		if line.QuantityReceived.IsNegative() || line.QuantityDamaged.IsNegative() {
			return nil, invalid("line %d: quantities must not be negative", i+1)
		}
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		if line.QuantityOrdered.IsZero() {
			line.QuantityOrdered = pol.Quantity
		}
		if line.QuantityReceived.LessThan(line.QuantityOrdered) || line.QuantityDamaged.IsPositive() {
			complete = false
		}
	}

	switch d.Status {
	case "":
		d.Status = procurement.DeliveryStatusPartial
		if complete {
			d.Status = procurement.DeliveryStatusComplete
		}
	case procurement.DeliveryStatusPending, procurement.DeliveryStatusPartial,
		procurement.DeliveryStatusComplete, procurement.DeliveryStatusDamaged:
	default:
		return nil, invalid("unknown delivery status %q", d.Status)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = s.now()
	}

	if err := s.repo.SaveDelivery(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info("delivery recorded", "delivery_id", d.ID, "purchase_order_id", po.ID,
		"status", d.Status, "lines", len(d.Lines))

	if d.Status == procurement.DeliveryStatusComplete &&
		(po.Status == procurement.POStatusSent || po.Status == procurement.POStatusAcknowledged) {
		if _, err := s.TransitionStatus(ctx, po.ID, procurement.POStatusReceived); err != nil {
			return nil, fmt.Errorf("mark purchase order %s received: %w", po.ID, err)
		}
	}
	return d, nil
}

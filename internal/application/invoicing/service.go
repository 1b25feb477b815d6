// Package invoicing runs invoices through intake, the three-way match and
// the accounts-payable lifecycle.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/adapters/notify"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/matcher"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/storage"
)

// ErrValidation aliases the shared sentinel so callers of this package need
// not import procurement to test for it.
var ErrValidation = procurement.ErrValidation

// SystemActor is recorded on audit events the service causes itself.
const SystemActor = "system"

// DefaultNotifyTimeout bounds one notification, retries included.
const DefaultNotifyTimeout = 5 * time.Second

// Options tunes a Service. Zero values use defaults.
type Options struct {
	DefaultTolerance matcher.Tolerance
	SweepConcurrency int
	NotifyTimeout    time.Duration
	Now              func() time.Time
}

// Outcome is an invoice together with the match that was just run on it.
type Outcome struct {
	Invoice *procurement.Invoice `json:"invoice"`
	Result  *matcher.MatchResult `json:"match_result,omitempty"`
}

// Service orchestrates invoice matching. It is safe for concurrent use.
type Service struct {
	repo          storage.Repository
	engine        *matcher.Matcher
	notifier      notify.Notifier
	logger        *slog.Logger
	defaults      matcher.Tolerance
	concurrency   int
	notifyTimeout time.Duration
	now           func() time.Time

	sweepMu   sync.Mutex
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewService creates an invoicing service.
func NewService(repo storage.Repository, notifier notify.Notifier, logger *slog.Logger, opts Options) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultTolerance == (matcher.Tolerance{}) {
		opts.DefaultTolerance = matcher.DefaultTolerance()
	}
	if opts.SweepConcurrency < 1 {
		opts.SweepConcurrency = 4
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:          repo,
		engine:        matcher.New(),
		notifier:      notifier,
		logger:        logger,
		defaults:      opts.DefaultTolerance,
		concurrency:   opts.SweepConcurrency,
		notifyTimeout: opts.NotifyTimeout,
		now:           opts.Now,
	}
}

// Tolerance returns the organization's override, or the configured
// defaults when it has none.
func (s *Service) Tolerance(ctx context.Context, organizationID string) (matcher.Tolerance, error) {
	tol, err := s.repo.GetTolerance(ctx, organizationID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return matcher.Tolerance{}, fmt.Errorf("load tolerance for %s: %w", organizationID, err)
	}
	return *tol, nil
}

// SetTolerance stores an organization override. The next match uses it.
func (s *Service) SetTolerance(ctx context.Context, organizationID string, tol matcher.Tolerance) error {
	for name, v := range map[string]decimal.Decimal{
		"price_percentage":    tol.PricePercentage,
		"quantity_percentage": tol.QuantityPercentage,
		"tax_freight_cap":     tol.TaxFreightCap,
		"delivery_percentage": tol.DeliveryPercentage,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrValidation, name)
		}
	}
	if err := s.repo.SaveTolerance(ctx, organizationID, tol); err != nil {
		return err
	}
	s.logger.Info("tolerance updated", "organization_id", organizationID,
		"price_percentage", tol.PricePercentage, "quantity_percentage", tol.QuantityPercentage,
		"tax_freight_cap", tol.TaxFreightCap, "delivery_percentage", tol.DeliveryPercentage)
	return nil
}

// GetInvoice loads an invoice.
func (s *Service) GetInvoice(ctx context.Context, id string) (*procurement.Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// History returns the invoice's audit trail.
func (s *Service) History(ctx context.Context, id string) ([]storage.InvoiceEvent, error) {
	if _, err := s.repo.GetInvoice(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListInvoiceEvents(ctx, id)
}

func validateInvoice(inv *procurement.Invoice) error {
	switch {
	case inv.OrganizationID == "":
		return fmt.Errorf("%w: organization_id is required", ErrValidation)
	case inv.ProjectID == "":
		return fmt.Errorf("%w: project_id is required", ErrValidation)
	case inv.TotalAmount.IsNegative():
		return fmt.Errorf("%w: total_amount must not be negative", ErrValidation)
	}
	return nil
}

// CreateInvoice records an uploaded invoice as pending and runs the first
// match.
func (s *Service) CreateInvoice(ctx context.Context, inv *procurement.Invoice) (*Outcome, error) {
	if err := validateInvoice(inv); err != nil {
		return nil, err
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	inv.Status = procurement.InvoiceStatusPending
	inv.MatchStatus = ""
	inv.MatchVariance = decimal.Zero
	inv.Exceptions = []procurement.Exception{}
	inv.MatchedAt = nil
	inv.CreatedAt = s.now()

	if err := s.repo.SaveInvoice(ctx, inv); err != nil {
		return nil, err
	}
	s.audit(ctx, inv.ID, "", procurement.InvoiceStatusPending, inv.UploadedBy, "uploaded")
	s.logger.Info("invoice received", "invoice_id", inv.ID, "number", inv.Number,
		"purchase_order_id", inv.PurchaseOrderID, "total", inv.TotalAmount)

	return s.Match(ctx, inv.ID)
}

// Match runs the three-way match on an open invoice and persists the
// outcome. Invoices that are already approved or paid are not re-matched.
func (s *Service) Match(ctx context.Context, invoiceID string) (*Outcome, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !procurement.CanRematch(inv) {
		return nil, fmt.Errorf("%w: invoice %s is %s", procurement.ErrInvalidTransition, inv.ID, inv.Status)
	}

	po, err := s.loadPurchaseOrder(ctx, inv)
	if err != nil {
		return nil, err
	}
	var deliveries []procurement.Delivery
	if po != nil {
		if deliveries, err = s.repo.ListDeliveriesByPurchaseOrder(ctx, po.ID); err != nil {
			return nil, fmt.Errorf("load deliveries for %s: %w", po.ID, err)
		}
	}
	tol, err := s.Tolerance(ctx, inv.OrganizationID)
	if err != nil {
		return nil, err
	}

	result := s.engine.PerformMatch(inv, po, deliveries, tol)

	from := inv.Status
	to := procurement.InvoiceStatusException
	if result.Matched {
		to = procurement.InvoiceStatusApproved
	}
	if err := procurement.TransitionInvoice(inv, to); err != nil {
		return nil, err
	}
	matchedAt := s.now()
	inv.MatchStatus = result.MatchStatus
	inv.MatchVariance = result.Summary.TotalVariance
	inv.Exceptions = result.Exceptions
	inv.MatchedAt = &matchedAt
	inv.MatchNote = ""

	// The engine ran on a snapshot; a concurrent manual match or payment
	// wins over this result.
	if err := s.repo.SaveInvoiceIfStatus(ctx, inv, from); err != nil {
		return nil, err
	}
	s.audit(ctx, inv.ID, from, to, SystemActor,
		fmt.Sprintf("match: %s, %d exception(s)", result.MatchStatus, len(result.Exceptions)))

	s.logger.Info("invoice matched",
		"invoice_id", inv.ID,
		"status", inv.Status,
		"match_status", result.MatchStatus,
		"exceptions", len(result.Exceptions),
		"total_variance", result.Summary.TotalVariance,
	)

	if to == procurement.InvoiceStatusException {
		s.notify(ctx, inv, notify.KindExceptionRaised, exceptionMessage(inv))
	}
	return &Outcome{Invoice: inv, Result: result}, nil
}

// loadPurchaseOrder returns nil when the invoice has no PO or the PO does
// not exist; the engine reports both as missing_po.
func (s *Service) loadPurchaseOrder(ctx context.Context, inv *procurement.Invoice) (*procurement.PurchaseOrder, error) {
	if !inv.HasPurchaseOrder() {
		return nil, nil
	}
	po, err := s.repo.GetPurchaseOrder(ctx, inv.PurchaseOrderID)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("invoice references unknown purchase order",
			"invoice_id", inv.ID, "purchase_order_id", inv.PurchaseOrderID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load purchase order %s: %w", inv.PurchaseOrderID, err)
	}
	return po, nil
}

// ManualMatch approves an invoice without running the engine. The match
// variance is zeroed and exceptions are cleared; the override is kept in
// the audit trail.
func (s *Service) ManualMatch(ctx context.Context, invoiceID, by, note string) (*Outcome, error) {
	if by == "" {
		return nil, fmt.Errorf("%w: matched_by is required", ErrValidation)
	}
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	from := inv.Status
	if err := procurement.TransitionInvoice(inv, procurement.InvoiceStatusApproved); err != nil {
		return nil, err
	}
	matchedAt := s.now()
	inv.MatchStatus = procurement.MatchStatusMatched
	inv.MatchVariance = decimal.Zero
	inv.Exceptions = []procurement.Exception{}
	inv.MatchedAt = &matchedAt
	inv.MatchNote = note

	if err := s.repo.SaveInvoiceIfStatus(ctx, inv, from); err != nil {
		return nil, err
	}
	s.audit(ctx, inv.ID, from, inv.Status, by, "manual match: "+note)
	s.logger.Info("invoice manually matched", "invoice_id", inv.ID, "by", by)
	s.notify(ctx, inv, notify.KindManualMatch, fmt.Sprintf("Invoice %s manually matched by %s", label(inv), by))

	return &Outcome{Invoice: inv}, nil
}

// MarkPaid moves an approved invoice to paid.
func (s *Service) MarkPaid(ctx context.Context, invoiceID, by string) (*procurement.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	from := inv.Status
	if err := procurement.TransitionInvoice(inv, procurement.InvoiceStatusPaid); err != nil {
		return nil, err
	}
	if err := s.repo.SaveInvoiceIfStatus(ctx, inv, from); err != nil {
		return nil, err
	}
	if by == "" {
		by = SystemActor
	}
	s.audit(ctx, inv.ID, from, inv.Status, by, "paid")
	s.logger.Info("invoice paid", "invoice_id", inv.ID, "total", inv.TotalAmount)
	s.notify(ctx, inv, notify.KindInvoicePaid, fmt.Sprintf("Invoice %s paid", label(inv)))
	return inv, nil
}

// Requeue sends an exception invoice back to pending so the next sweep
// re-matches it, typically after the PO or deliveries were corrected.
func (s *Service) Requeue(ctx context.Context, invoiceID, by string) (*procurement.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != procurement.InvoiceStatusException {
		return nil, fmt.Errorf("%w: only exception invoices can be re-queued, %s is %s",
			procurement.ErrInvalidTransition, inv.ID, inv.Status)
	}
	if err := procurement.TransitionInvoice(inv, procurement.InvoiceStatusPending); err != nil {
		return nil, err
	}
	if err := s.repo.SaveInvoiceIfStatus(ctx, inv, procurement.InvoiceStatusException); err != nil {
		return nil, err
	}
	s.audit(ctx, inv.ID, procurement.InvoiceStatusException, inv.Status, by, "re-queued for matching")
	return inv, nil
}

// audit failures are logged; the state change they describe already
// happened.
func (s *Service) audit(ctx context.Context, invoiceID string, from, to procurement.InvoiceStatus, actor, note string) {
	event := &storage.InvoiceEvent{
		InvoiceID:  invoiceID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Note:       note,
		CreatedAt:  s.now(),
	}
	if err := s.repo.RecordInvoiceEvent(ctx, event); err != nil {
		s.logger.Error("failed to record invoice event", "invoice_id", invoiceID, "error", err)
	}
}

// notify runs inside request handlers and sweep workers, so each delivery
// gets its own deadline.
func (s *Service) notify(ctx context.Context, inv *procurement.Invoice, kind notify.Kind, message string) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	n := notify.Notification{
		Kind:           kind,
		OrganizationID: inv.OrganizationID,
		ProjectID:      inv.ProjectID,
		InvoiceID:      inv.ID,
		InvoiceNumber:  inv.Number,
		Recipient:      inv.UploadedBy,
		MatchStatus:    inv.MatchStatus,
		Exceptions:     inv.Exceptions,
		Message:        message,
		At:             s.now(),
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error("notification failed", "invoice_id", inv.ID, "kind", kind, "error", err)
	}
}

func label(inv *procurement.Invoice) string {
	if inv.Number != "" {
		return inv.Number
	}
	return inv.ID
}

func exceptionMessage(inv *procurement.Invoice) string {
	msg := fmt.Sprintf("Invoice %s needs review: %d exception(s)", label(inv), len(inv.Exceptions))
	for _, e := range inv.Exceptions {
		if e.Severity.Blocking() {
			return msg + ". " + e.Message
		}
	}
	return msg
}

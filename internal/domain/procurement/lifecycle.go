package procurement

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrValidation is returned for records that are malformed before any
	// lifecycle rule applies.
	ErrValidation = errors.New("validation failed")
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending:   {InvoiceStatusPending, InvoiceStatusApproved, InvoiceStatusException},
	InvoiceStatusException: {InvoiceStatusException, InvoiceStatusApproved, InvoiceStatusPending},
	InvoiceStatusApproved:  {InvoiceStatusPaid},
	InvoiceStatusPaid:      {},
}

var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:        {POStatusSent, POStatusClosed},
	POStatusSent:         {POStatusAcknowledged, POStatusReceived, POStatusClosed},
	POStatusAcknowledged: {POStatusReceived, POStatusClosed},
	POStatusReceived:     {POStatusClosed},
	POStatusClosed:       {},
}

// TransitionInvoice moves an invoice to the target status.
// pending and exception may be re-entered so a re-match can land on the
// same status it started from.
func TransitionInvoice(inv *Invoice, to InvoiceStatus) error {
	from := inv.Status
	if from == "" {
		from = InvoiceStatusPending
	}
	if !contains(invoiceTransitions[from], to) {
		return fmt.Errorf("%w: invoice %s %s -> %s", ErrInvalidTransition, inv.ID, from, to)
	}
	inv.Status = to
	return nil
}

// CanRematch reports whether the invoice is still open to the match engine.
func CanRematch(inv *Invoice) bool {
	return inv.Status == "" || inv.Status == InvoiceStatusPending || inv.Status == InvoiceStatusException
}

// TransitionPurchaseOrder moves a PO to the target status.
func TransitionPurchaseOrder(po *PurchaseOrder, to POStatus) error {
	from := po.Status
	if from == "" {
		from = POStatusDraft
	}
	if !contains(poTransitions[from], to) {
		return fmt.Errorf("%w: purchase order %s %s -> %s", ErrInvalidTransition, po.ID, from, to)
	}
	po.Status = to
	return nil
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Package matcher provides three-way matching of vendor invoices against
// purchase orders and deliveries.
//
// The matcher runs a fixed sequence of checks, each of which may raise
// exceptions:
//  1. PO presence (missing_po)
//  2. Total price variance against Tolerance.PricePercentage
//  3. Line items: SKU, then description; quantity and unit price variance
//  4. Tax variance against the absolute Tolerance.TaxFreightCap
//  5. Freight variance against the same cap
//  6. Received value of deliveries against the invoice total
//
// It is a pure function of its inputs: no data access, no clock, no
// notifications. Callers persist the result and act on it.
//
// Example usage:
//
//	m := matcher.New()
//	result := m.PerformMatch(invoice, po, deliveries, matcher.DefaultTolerance())
//	if result.Matched {
//		// safe to auto-approve
//	}
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/validator"
)

// Matcher performs three-way matches. It holds no state; one Matcher can
// serve concurrent matches with different tolerances.
type Matcher struct{}

// New creates a new matcher
func New() *Matcher {
	return &Matcher{}
}

// PerformMatch matches an invoice against its purchase order and the
// deliveries received on that PO. po may be nil when the invoice has no PO
// or the PO could not be loaded.
func (m *Matcher) PerformMatch(
	invoice *procurement.Invoice,
	po *procurement.PurchaseOrder,
	deliveries []procurement.Delivery,
	tol Tolerance,
) *MatchResult {
	result := &MatchResult{
		Exceptions: []procurement.Exception{},
		Summary: Summary{
			PriceVariance:    decimal.Zero,
			QuantityVariance: decimal.Zero,
			TotalVariance:    decimal.Zero,
		},
	}

	resolved := invoice.HasPurchaseOrder() && po != nil && po.ID == invoice.PurchaseOrderID

	// Step 1: PO presence
	if !resolved {
		result.add(missingPO(invoice))
	} else {
		// Steps 2-5 need the PO
		checkTotal(result, invoice, po, tol)
		checkLines(result, invoice, po, tol)
		if e, ok := checkCap(procurement.ExceptionTax, "Tax", invoice.TaxAmount, po.TaxAmount, tol.TaxFreightCap); ok {
			result.add(e)
		}
		if e, ok := checkCap(procurement.ExceptionFreight, "Freight", invoice.FreightAmount, po.FreightAmount, tol.TaxFreightCap); ok {
			result.add(e)
		}
	}

	// Step 6: delivery
	result.Summary.DeliveryMatch = checkDelivery(result, invoice, po, deliveries, tol, resolved)

	result.Summary.POMatch = resolved && !result.hasAny(
		procurement.ExceptionPrice,
		procurement.ExceptionUnmatchedLine,
		procurement.ExceptionQuantityVariance,
		procurement.ExceptionUnitPriceVariance,
	)
	result.Matched = resolved && !result.blocked()
	result.MatchStatus = deriveStatus(result)

	return result
}

func missingPO(invoice *procurement.Invoice) procurement.Exception {
	msg := fmt.Sprintf("Invoice %s has no linked purchase order", invoice.Number)
	if invoice.HasPurchaseOrder() {
		msg = fmt.Sprintf("Purchase order %s referenced by invoice %s could not be found", invoice.PurchaseOrderID, invoice.Number)
	}
	return procurement.Exception{
		Type:     procurement.ExceptionMissingPO,
		Severity: procurement.SeverityError,
		Message:  msg,
	}
}

// checkTotal compares invoice and PO grand totals.
// Overcharges are errors; undercharges are warnings.
func checkTotal(result *MatchResult, invoice *procurement.Invoice, po *procurement.PurchaseOrder, tol Tolerance) {
	diff := money.Sub(invoice.TotalAmount, po.TotalAmount)
	pct := money.VariancePercent(invoice.TotalAmount, po.TotalAmount)

	result.Summary.TotalVariance = diff
	result.Summary.PriceVariance = pct

	if !pct.GreaterThan(tol.PricePercentage) {
		return
	}

	severity := procurement.SeverityWarning
	verb := "is below"
	if diff.IsPositive() {
		severity = procurement.SeverityError
		verb = "exceeds"
	}

	result.add(procurement.Exception{
		Type:     procurement.ExceptionPrice,
		Severity: severity,
		Message: fmt.Sprintf("Invoice total %s %s PO total %s by %s (%s variance, tolerance %s)",
			money.FormatUSD(invoice.TotalAmount), verb, money.FormatUSD(po.TotalAmount),
			money.FormatSignedUSD(diff), money.FormatPercent(pct), money.FormatPercent(tol.PricePercentage)),
		Variance:  ptr(diff),
		Tolerance: ptr(tol.PricePercentage),
	})
}

// checkCap compares an invoice charge with the PO charge against an
// absolute dollar cap.
func checkCap(kind procurement.ExceptionType, label string, invoiced, ordered, capAmount decimal.Decimal) (procurement.Exception, bool) {
	diff := money.Sub(invoiced, ordered)
	if !diff.Abs().GreaterThan(capAmount) {
		return procurement.Exception{}, false
	}
	return procurement.Exception{
		Type:     kind,
		Severity: procurement.SeverityWarning,
		Message: fmt.Sprintf("%s of %s differs from PO %s by %s (cap %s)",
			label, money.FormatUSD(invoiced), money.FormatUSD(ordered),
			money.FormatSignedUSD(diff), money.FormatUSD(capAmount)),
		Variance:  ptr(diff),
		Tolerance: ptr(capAmount),
	}, true
}

// checkDelivery compares the received value with the invoice total and
// reports whether the delivery side matched. Received goods are priced off
// PO lines, so there is nothing to compare without a resolved PO that has
// lines (a lump-sum PO).
func checkDelivery(
	result *MatchResult,
	invoice *procurement.Invoice,
	po *procurement.PurchaseOrder,
	deliveries []procurement.Delivery,
	tol Tolerance,
	resolved bool,
) bool {
	if !resolved {
		return false
	}
	if len(po.Lines) == 0 {
		return true
	}

	related := make([]procurement.Delivery, 0, len(deliveries))
	for _, d := range deliveries {
		if d.PurchaseOrderID == "" || d.PurchaseOrderID == po.ID {
			related = append(related, d)
		}
	}

	if len(related) == 0 {
		result.add(procurement.Exception{
			Type:     procurement.ExceptionMissingDelivery,
			Severity: procurement.SeverityMedium,
			Message:  fmt.Sprintf("No delivery has been recorded against PO %s", po.Number),
		})
		return false
	}

	v := validator.ValidateDeliveredValue(po, related, invoice.TotalAmount, tol.DeliveryPercentage)
	if v.Valid {
		return true
	}

	// billing for goods not yet received blocks approval
	severity := procurement.SeverityMedium
	if v.Difference.IsPositive() {
		severity = procurement.SeverityHigh
	}
	result.add(procurement.Exception{
		Type:      procurement.ExceptionDeliveryInvoiceMismatch,
		Severity:  severity,
		Message:   "Delivery mismatch: " + v.Reason,
		Variance:  ptr(v.VariancePercent),
		Tolerance: ptr(tol.DeliveryPercentage),
	})
	return false
}

// statusPriority orders exception types by which match status they map to.
var statusPriority = []struct {
	status procurement.MatchStatus
	types  []procurement.ExceptionType
}{
	{procurement.MatchStatusMissingPO, []procurement.ExceptionType{procurement.ExceptionMissingPO}},
	{procurement.MatchStatusPriceVariance, []procurement.ExceptionType{procurement.ExceptionPrice, procurement.ExceptionUnitPriceVariance}},
	{procurement.MatchStatusQtyVariance, []procurement.ExceptionType{
		procurement.ExceptionQuantityVariance,
		procurement.ExceptionUnmatchedLine,
		procurement.ExceptionMissingDelivery,
		procurement.ExceptionDeliveryInvoiceMismatch,
	}},
	{procurement.MatchStatusTaxVariance, []procurement.ExceptionType{procurement.ExceptionTax}},
	{procurement.MatchStatusFreightVariance, []procurement.ExceptionType{procurement.ExceptionFreight}},
}

func deriveStatus(result *MatchResult) procurement.MatchStatus {
	for _, p := range statusPriority {
		if result.hasAny(p.types...) {
			return p.status
		}
	}
	return procurement.MatchStatusMatched
}

func (r *MatchResult) add(e procurement.Exception) {
	r.Exceptions = append(r.Exceptions, e)
}

func (r *MatchResult) hasAny(types ...procurement.ExceptionType) bool {
	for _, t := range types {
		if r.HasException(t) {
			return true
		}
	}
	return false
}

func (r *MatchResult) blocked() bool {
	for _, e := range r.Exceptions {
		if e.Severity.Blocking() {
			return true
		}
	}
	return false
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

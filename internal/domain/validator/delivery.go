// Package validator provides receipt validation for accounts payable.
//
// The delivery validator checks that the value of goods actually received
// against a purchase order supports the amount being invoiced. It prevents
// paying for goods that have not arrived (or arrived short).
package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// DeliveryValidation contains the result of comparing received value with
// an invoice total.
type DeliveryValidation struct {
	// Valid is true if the variance is within the threshold
	Valid bool

	// DeliveredValue is sum(quantityReceived * PO unit price) over all lines
	DeliveredValue decimal.Decimal

	// InvoiceTotal is what the vendor billed
	InvoiceTotal decimal.Decimal

	// Difference is InvoiceTotal - DeliveredValue
	Difference decimal.Decimal

	// VariancePercent is |Difference| / InvoiceTotal * 100
	VariancePercent decimal.Decimal

	// PricedLines counts delivery lines that resolved to a PO line price
	PricedLines int

	// Reason explains why validation failed (empty if valid)
	Reason string
}

// DeliveredValue sums quantityReceived * unitPrice across every line of
// every delivery, using the unit price of the PO line each delivery line
// links to. Lines with no resolvable PO line contribute nothing.
func DeliveredValue(po *procurement.PurchaseOrder, deliveries []procurement.Delivery) (decimal.Decimal, int) {
	total := decimal.Zero
	priced := 0
	for _, d := range deliveries {
		for _, dl := range d.Lines {
			pol, ok := po.Line(dl.PurchaseOrderLineID)
			if !ok {
				continue
			}
			total = money.Add(total, money.Mul(dl.QuantityReceived, pol.UnitPrice))
			priced++
		}
	}
	return total, priced
}

// ValidateDeliveredValue checks the delivered value against the invoice total.
//
// The validation passes if:
//
//	|invoiceTotal - delivered| / invoiceTotal * 100 <= thresholdPercent
//
// A zero invoice total yields money.ZeroBaseVariance.
func ValidateDeliveredValue(po *procurement.PurchaseOrder, deliveries []procurement.Delivery, invoiceTotal, thresholdPercent decimal.Decimal) *DeliveryValidation {
	delivered, priced := DeliveredValue(po, deliveries)
	diff := money.Sub(invoiceTotal, delivered)
	pct := money.VariancePercent(delivered, invoiceTotal)

	result := &DeliveryValidation{
		Valid:           true,
		DeliveredValue:  delivered,
		InvoiceTotal:    money.Q(invoiceTotal),
		Difference:      diff,
		VariancePercent: pct,
		PricedLines:     priced,
	}

	if pct.LessThanOrEqual(thresholdPercent) {
		return result
	}

	result.Valid = false
	if diff.IsPositive() {
		result.Reason = fmt.Sprintf("invoice total (%s) exceeds received value (%s) by %s (%s variance) - goods may not have been delivered yet",
			money.FormatUSD(invoiceTotal), money.FormatUSD(delivered), money.FormatUSD(diff), money.FormatPercent(pct))
	} else {
		result.Reason = fmt.Sprintf("received value (%s) exceeds invoice total (%s) by %s (%s variance) - possible partial invoice",
			money.FormatUSD(delivered), money.FormatUSD(invoiceTotal), money.FormatUSD(diff.Neg()), money.FormatPercent(pct))
	}
	return result
}

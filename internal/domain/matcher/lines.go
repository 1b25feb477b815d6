package matcher

import (
	"fmt"
	"strings"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// checkLines matches each invoice line to a PO line and compares quantity
// and unit price. Unmatched lines skip the variance checks.
func checkLines(result *MatchResult, invoice *procurement.Invoice, po *procurement.PurchaseOrder, tol Tolerance) {
	for i := range invoice.Lines {
		il := &invoice.Lines[i]
		label := lineLabel(i, il)

		pol := findPOLine(po.Lines, il)
		if pol == nil {
			result.add(procurement.Exception{
				Type:     procurement.ExceptionUnmatchedLine,
				Severity: procurement.SeverityMedium,
				Message:  fmt.Sprintf("%s has no matching line on PO %s", label, po.Number),
			})
			continue
		}

		qtyPct := money.VariancePercent(il.Quantity, pol.Quantity)
		if qtyPct.GreaterThan(result.Summary.QuantityVariance) {
			result.Summary.QuantityVariance = qtyPct
		}
		if qtyPct.GreaterThan(tol.QuantityPercentage) {
			severity := procurement.SeverityMedium
			if qtyPct.GreaterThan(highQuantityVariance) {
				severity = procurement.SeverityHigh
			}
			result.add(procurement.Exception{
				Type:     procurement.ExceptionQuantityVariance,
				Severity: severity,
				Message: fmt.Sprintf("%s quantity %s differs from PO quantity %s (%s variance)",
					label, il.Quantity.String(), pol.Quantity.String(), money.FormatPercent(qtyPct)),
				Variance:  ptr(qtyPct),
				Tolerance: ptr(tol.QuantityPercentage),
			})
		}

		pricePct := money.VariancePercent(il.UnitPrice, pol.UnitPrice)
		if pricePct.GreaterThan(tol.PricePercentage) {
			severity := procurement.SeverityMedium
			if pricePct.GreaterThan(highUnitPriceVariance) {
				severity = procurement.SeverityHigh
			}
			result.add(procurement.Exception{
				Type:     procurement.ExceptionUnitPriceVariance,
				Severity: severity,
				Message: fmt.Sprintf("%s unit price %s differs from PO unit price %s (%s variance)",
					label, money.FormatUSD(il.UnitPrice), money.FormatUSD(pol.UnitPrice), money.FormatPercent(pricePct)),
				Variance:  ptr(pricePct),
				Tolerance: ptr(tol.PricePercentage),
			})
		}
	}
}

// findPOLine looks up the PO line for an invoice line: exact SKU first,
// then a case-insensitive substring match on description in either
// direction.
func findPOLine(lines []procurement.PurchaseOrderLine, il *procurement.InvoiceLine) *procurement.PurchaseOrderLine {
	if sku := normalize(il.SKU); sku != "" {
		for i := range lines {
			if normalize(lines[i].SKU) == sku {
				return &lines[i]
			}
		}
	}

	desc := normalize(il.Description)
	if desc == "" {
		return nil
	}
	for i := range lines {
		poDesc := normalize(lines[i].Description)
		if poDesc == "" {
			continue
		}
		if strings.Contains(poDesc, desc) || strings.Contains(desc, poDesc) {
			return &lines[i]
		}
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lineLabel(i int, il *procurement.InvoiceLine) string {
	if il.Description != "" {
		return fmt.Sprintf("Line %d (%s)", i+1, il.Description)
	}
	return fmt.Sprintf("Line %d", i+1)
}

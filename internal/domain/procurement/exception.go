package procurement

import "github.com/shopspring/decimal"

// ExceptionType identifies the kind of mismatch found during a match.
type ExceptionType string

const (
	ExceptionMissingPO               ExceptionType = "missing_po"
	ExceptionPrice                   ExceptionType = "price"
	ExceptionUnmatchedLine           ExceptionType = "unmatched_line"
	ExceptionQuantityVariance        ExceptionType = "quantity_variance"
	ExceptionUnitPriceVariance       ExceptionType = "unit_price_variance"
	ExceptionTax                     ExceptionType = "tax"
	ExceptionFreight                 ExceptionType = "freight"
	ExceptionMissingDelivery         ExceptionType = "missing_delivery"
	ExceptionDeliveryInvoiceMismatch ExceptionType = "delivery_invoice_mismatch"
)

// Severity grades an exception. Warning and medium are advisory; high and
// error block auto-approval.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityMedium  Severity = "medium"
	SeverityHigh    Severity = "high"
	SeverityError   Severity = "error"
)

// Blocking reports whether the severity prevents auto-approval.
func (s Severity) Blocking() bool {
	return s == SeverityHigh || s == SeverityError
}

// Exception is a structured, human-readable record of one mismatch.
// Exceptions are immutable; a re-match replaces the whole list.
type Exception struct {
	Type      ExceptionType    `json:"type"`
	Severity  Severity         `json:"severity"`
	Message   string           `json:"message"`
	Variance  *decimal.Decimal `json:"variance,omitempty"`
	Tolerance *decimal.Decimal `json:"tolerance,omitempty"`
}

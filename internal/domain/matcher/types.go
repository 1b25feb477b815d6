package matcher

import (
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// Tolerance holds per-organization match thresholds.
// A Tolerance is passed into every match; it is never cached, so a settings
// change applies to the next match immediately.
type Tolerance struct {
	PricePercentage    decimal.Decimal `json:"price_percentage"`    // Default: 2.0 (%)
	QuantityPercentage decimal.Decimal `json:"quantity_percentage"` // Default: 1.0 (%)
	TaxFreightCap      decimal.Decimal `json:"tax_freight_cap"`     // Default: $50.00, absolute
	DeliveryPercentage decimal.Decimal `json:"delivery_percentage"` // Default: 5.0 (%)
}

// DefaultTolerance returns the thresholds used when an organization has not
// configured its own.
func DefaultTolerance() Tolerance {
	return Tolerance{
		PricePercentage:    decimal.NewFromFloat(2.0),
		QuantityPercentage: decimal.NewFromFloat(1.0),
		TaxFreightCap:      decimal.NewFromFloat(50.0),
		DeliveryPercentage: decimal.NewFromFloat(5.0),
	}
}

// Line-level severity escalation thresholds (percent).
var (
	highQuantityVariance  = decimal.NewFromInt(20)
	highUnitPriceVariance = decimal.NewFromInt(10)
)

// Summary carries the headline variances of a match.
type Summary struct {
	POMatch          bool            `json:"po_match"`
	DeliveryMatch    bool            `json:"delivery_match"`
	PriceVariance    decimal.Decimal `json:"price_variance"`    // percent, invoice total vs PO total
	QuantityVariance decimal.Decimal `json:"quantity_variance"` // largest line quantity variance, percent
	TotalVariance    decimal.Decimal `json:"total_variance"`    // signed dollars, invoice - PO
}

// MatchResult is the outcome of a three-way match. It is always returned,
// never an error: missing records become exceptions.
type MatchResult struct {
	Matched     bool                    `json:"matched"`
	Exceptions  []procurement.Exception `json:"exceptions"`
	Summary     Summary                 `json:"summary"`
	MatchStatus procurement.MatchStatus `json:"match_status"`
}

// HasException reports whether an exception of the given type was raised.
func (r *MatchResult) HasException(t procurement.ExceptionType) bool {
	for _, e := range r.Exceptions {
		if e.Type == t {
			return true
		}
	}
	return false
}

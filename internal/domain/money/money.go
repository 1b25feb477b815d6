// Package money holds the numeric discipline shared by the match and
// forecast engines.
//
// Every monetary step is rounded to cents immediately (Q), not only at
// output, so that later formulas operate on already-rounded inputs and the
// forecast verification checks are exact:
//
//	c := money.Add(committed, received) // Q(committed + received)
//	g := money.Sub(a, c)                // Q(a - c)
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Places is the number of decimal places every amount is rounded to.
const Places = 2

var hundred = decimal.NewFromInt(100)

// ZeroBaseVariance is the variance percentage reported when the base of a
// percentage comparison is zero (a PO total of $0, a PO line quantity of 0).
// All percentage checks use it, so a zero base never yields NaN/Inf and
// never raises a variance exception on its own.
var ZeroBaseVariance = decimal.Zero

// Q rounds an amount to cents.
func Q(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Add returns Q(a + b).
func Add(a, b decimal.Decimal) decimal.Decimal {
	return Q(a.Add(b))
}

// Sub returns Q(a - b).
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return Q(a.Sub(b))
}

// Mul returns Q(a * b).
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return Q(a.Mul(b))
}

// Sum adds amounts left to right, rounding after each addition.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = Add(total, a)
	}
	return total
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	return Max(d, decimal.Zero)
}

// VariancePercent returns |actual - base| / |base| * 100.
// The result is not rounded; threshold comparisons need full precision
// (1020.01 against 1000.00 is 2.001%, which must exceed a 2% tolerance).
func VariancePercent(actual, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return ZeroBaseVariance
	}
	return actual.Sub(base).Abs().Div(base.Abs()).Mul(hundred)
}

// Within reports whether |a - b| <= tolerance.
func Within(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// FromFloat converts a float into a cent-rounded amount.
func FromFloat(f float64) decimal.Decimal {
	return Q(decimal.NewFromFloat(f))
}

// Must parses a decimal literal and panics on malformed input.
// Intended for constants and tests.
func Must(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var printer = message.NewPrinter(language.English)

// FormatUSD renders an amount as "$1,221.00" or "-$150.00".
func FormatUSD(d decimal.Decimal) string {
	d = Q(d)
	if d.IsNegative() {
		return "-$" + printer.Sprintf("%.2f", d.Neg().InexactFloat64())
	}
	return "$" + printer.Sprintf("%.2f", d.InexactFloat64())
}

// FormatSignedUSD renders an amount with an explicit sign: "+$150.00".
func FormatSignedUSD(d decimal.Decimal) string {
	if d.IsNegative() {
		return FormatUSD(d)
	}
	return "+" + FormatUSD(d)
}

// FormatPercent renders a percentage to one decimal place: "14.0%".
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

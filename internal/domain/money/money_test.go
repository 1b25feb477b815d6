package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestQ_RoundsToCents(t *testing.T) {
	assert.Equal(t, "10.13", Q(Must("10.125")).StringFixed(2))
	assert.Equal(t, "10.12", Q(Must("10.1249")).StringFixed(2))
	assert.Equal(t, "-10.13", Q(Must("-10.125")).StringFixed(2))
}

func TestSum_RoundsEachStep(t *testing.T) {
	total := Sum(Must("0.005"), Must("0.005"), Must("0.005"))
	// each addend rounds up to a cent as it is added
	assert.True(t, total.Equal(Must("0.03")), "got %s", total)
}

func TestVariancePercent(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		base     string
		expected string
	}{
		{"exact", "1000", "1000", "0"},
		{"at two percent", "1020", "1000", "2"},
		{"just over two percent", "1020.01", "1000", "2.001"},
		{"under base", "980", "1000", "2"},
		{"zero base", "50", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VariancePercent(Must(tt.actual), Must(tt.base))
			assert.True(t, got.Equal(Must(tt.expected)), "got %s", got)
		})
	}
}

func TestWithin(t *testing.T) {
	assert.True(t, Within(Must("100.00"), Must("150.00"), Must("50")))
	assert.False(t, Within(Must("100.00"), Must("150.01"), Must("50")))
}

func TestMaxAndNonNegative(t *testing.T) {
	assert.True(t, Max(Must("1"), Must("2")).Equal(Must("2")))
	assert.True(t, NonNegative(Must("-3.50")).IsZero())
	assert.True(t, NonNegative(Must("3.50")).Equal(Must("3.50")))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$150.00", FormatUSD(Must("150")))
	assert.Equal(t, "-$150.00", FormatUSD(Must("-150")))
	assert.Equal(t, "+$150.00", FormatSignedUSD(Must("150")))
	assert.Equal(t, "-$20.50", FormatSignedUSD(Must("-20.5")))
	assert.Equal(t, "14.0%", FormatPercent(Must("14.0056")))
	assert.Equal(t, "2.0%", FormatPercent(decimal.NewFromInt(2)))
}

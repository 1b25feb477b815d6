// Package allocator distributes project-level amounts across cost codes.
//
// Purchase order totals and invoices are not always tagged with a cost
// code, so the forecast spreads them by each cost code's share of the
// project budget:
//
//	share_for_code = pool * (budget_for_code / budget_for_project)
//
// The Strategy interface keeps that policy out of the forecast formulas so
// a direct-tagging strategy can replace it later.
package allocator

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
)

// Share is one claimant on a pool, weighted by Weight (its budget).
type Share struct {
	Key    string
	Weight decimal.Decimal
}

// Allocation is the amount allocated to a single share.
type Allocation struct {
	Key    string
	Weight decimal.Decimal
	Amount decimal.Decimal
}

// Result contains the allocation results.
type Result struct {
	Allocations    []Allocation
	TotalAllocated decimal.Decimal
}

// Strategy distributes a pool across keyed shares.
type Strategy interface {
	Distribute(pool decimal.Decimal, shares []Share) (map[string]decimal.Decimal, error)
}

// ProportionalByBudgetShare allocates by each share's fraction of the total
// weight. It is the only strategy today.
type ProportionalByBudgetShare struct{}

var _ Strategy = ProportionalByBudgetShare{}

// Distribute implements Strategy.
func (ProportionalByBudgetShare) Distribute(pool decimal.Decimal, shares []Share) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(shares))
	if len(shares) == 0 {
		return out, nil
	}
	result, err := Allocate(shares, pool)
	if err != nil {
		return nil, err
	}
	for _, a := range result.Allocations {
		out[a.Key] = a.Amount
	}
	return out, nil
}

// Allocate distributes pool across shares proportionally to their weights.
// Each amount is rounded to cents and the rounding remainder is placed on
// the largest allocation, so allocations always sum to the pool exactly.
// Returns an error if shares is empty, the pool is negative or a weight is
// negative.
func Allocate(shares []Share, pool decimal.Decimal) (*Result, error) {
	if len(shares) == 0 {
		return nil, errors.New("no shares to allocate")
	}
	if pool.IsNegative() {
		return nil, errors.New("pool cannot be negative")
	}

	// Step 1: Sum weights
	totalWeight := decimal.Zero
	for _, s := range shares {
		if s.Weight.IsNegative() {
			return nil, errors.New("share weight cannot be negative")
		}
		totalWeight = totalWeight.Add(s.Weight)
	}

	allocations := make([]Allocation, len(shares))
	if totalWeight.IsZero() {
		// No budget anywhere - nothing can be distributed
		for i, s := range shares {
			allocations[i] = Allocation{Key: s.Key, Weight: s.Weight, Amount: decimal.Zero}
		}
		return &Result{Allocations: allocations, TotalAllocated: decimal.Zero}, nil
	}

	// Step 2: Allocate to each share
	totalAllocated := decimal.Zero
	for i, s := range shares {
		amount := money.Q(pool.Mul(s.Weight).Div(totalWeight))
		allocations[i] = Allocation{Key: s.Key, Weight: s.Weight, Amount: amount}
		totalAllocated = money.Add(totalAllocated, amount)
	}

	// Step 3: Fix rounding - adjust largest share if total is off
	diff := money.Sub(money.Q(pool), totalAllocated)
	if !diff.IsZero() {
		maxIdx := 0
		for i, a := range allocations {
			if a.Amount.GreaterThan(allocations[maxIdx].Amount) {
				maxIdx = i
			}
		}
		allocations[maxIdx].Amount = money.Add(allocations[maxIdx].Amount, diff)
		totalAllocated = money.Add(totalAllocated, diff)
	}

	return &Result{
		Allocations:    allocations,
		TotalAllocated: totalAllocated,
	}, nil
}

package scheduler

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
)

// Allocation is the share of the pool assigned to one instrument.
type Allocation struct {
	InstrumentID     string
	Name             string
	InterestRate     decimal.Decimal
	RemainingBalance decimal.Decimal
	Minimum          decimal.Decimal
	Extra            decimal.Decimal
	Total            decimal.Decimal
}

// DistributionSummary aggregates an allocation. Unallocated is what is left
// when every debt is paid off before the surplus runs out.
type DistributionSummary struct {
	TotalAvailable decimal.Decimal
	TotalMinimum   decimal.Decimal
	TotalExtra     decimal.Decimal
	Unallocated    decimal.Decimal
}

// Distribution is the result of Allocate. Allocations keep the input order.
type Distribution struct {
	Allocations []Allocation
	Summary     DistributionSummary
}

// Allocate splits total across instruments with the avalanche method: every
// instrument first receives its minimum payment, then the surplus goes to the
// highest interest rate first, never beyond an instrument's remaining balance.
//
// The minimum of an instrument is its periodic payment, or its remaining
// balance when less is owed.
func Allocate(instruments []debt.Instrument, total decimal.Decimal) (Distribution, error) {
	if !total.IsPositive() {
		return Distribution{}, errs.Invalid("total_available", "must be positive")
	}
	if len(instruments) == 0 {
		return Distribution{}, errs.Invalid("instruments", "at least one instrument is required")
	}

	allocs := make([]Allocation, len(instruments))
	var minimums decimal.Decimal
	for i, inst := range instruments {
		minimum := minimumOf(inst)
		if minimum.IsNegative() {
			minimum = decimal.Zero
		}
		allocs[i] = Allocation{
			InstrumentID:     inst.ID,
			Name:             inst.Name,
			InterestRate:     inst.InterestRate,
			RemainingBalance: inst.RemainingBalance,
			Minimum:          minimum,
			Total:            minimum,
		}
		minimums = minimums.Add(minimum)
	}
	if total.LessThan(minimums) {
		return Distribution{}, &errs.ShortfallError{
			Required:  minimums,
			Available: total,
			Shortfall: minimums.Sub(total),
		}
	}

	order := make([]int, len(allocs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return allocs[order[a]].InterestRate.GreaterThan(allocs[order[b]].InterestRate)
	})

	surplus := total.Sub(minimums)
	var extras decimal.Decimal
	for _, i := range order {
		if !surplus.IsPositive() {
			break
		}
		a := &allocs[i]
		room := a.RemainingBalance.Sub(a.Minimum)
		if !room.IsPositive() {
			continue
		}
		extra := decimal.Min(surplus, room)
		a.Extra = extra
		a.Total = a.Minimum.Add(extra)
		surplus = surplus.Sub(extra)
		extras = extras.Add(extra)
	}

	return Distribution{
		Allocations: allocs,
		Summary: DistributionSummary{
			TotalAvailable: total,
			TotalMinimum:   minimums,
			TotalExtra:     extras,
			Unallocated:    surplus,
		},
	}, nil
}

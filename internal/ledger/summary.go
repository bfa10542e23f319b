package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LowBalanceThreshold is the balance under which a standard account is
// flagged in the summary.
var LowBalanceThreshold = decimal.NewFromInt(100)

// IsLowBalance reports a standard account holding less than threshold but not
// overdrawn.
func (a Account) IsLowBalance(threshold decimal.Decimal) bool {
	return !a.IsOverdraft() && !a.Balance.IsNegative() && a.Balance.LessThan(threshold)
}

// IsOverdrawn reports money owed on the account. For overdraft accounts that is
// drawn credit; the displayed balance of those is always zero.
func (a Account) IsOverdrawn() bool {
	if a.IsOverdraft() {
		return a.OverdraftUsed.IsPositive()
	}
	return a.Balance.IsNegative()
}

// TypeSummary aggregates the accounts of one type.
type TypeSummary struct {
	Count    int
	Balances map[string]decimal.Decimal
}

// Summary is an owner-level view over accounts. Amounts are keyed by currency
// and never mixed across currencies.
type Summary struct {
	Balances      map[string]decimal.Decimal
	OverdraftUsed map[string]decimal.Decimal
	ByType        map[AccountType]TypeSummary
	LowBalance    []Account
	Overdrawn     []Account
}

// Summarize builds a Summary. Balances sum displayed balances, so overdraft
// exposure appears only under OverdraftUsed. Flagged accounts are ordered by
// name.
func Summarize(accounts []Account, lowThreshold decimal.Decimal) Summary {
	sum := Summary{
		Balances:      map[string]decimal.Decimal{},
		OverdraftUsed: map[string]decimal.Decimal{},
		ByType:        map[AccountType]TypeSummary{},
	}
	for _, a := range accounts {
		sum.Balances[a.Currency] = sum.Balances[a.Currency].Add(a.DisplayedBalance())
		if a.IsOverdraft() {
			sum.OverdraftUsed[a.Currency] = sum.OverdraftUsed[a.Currency].Add(a.OverdraftUsed)
		}

		ts := sum.ByType[a.Type]
		if ts.Balances == nil {
			ts.Balances = map[string]decimal.Decimal{}
		}
		ts.Count++
		ts.Balances[a.Currency] = ts.Balances[a.Currency].Add(a.DisplayedBalance())
		sum.ByType[a.Type] = ts

		if a.IsLowBalance(lowThreshold) {
			sum.LowBalance = append(sum.LowBalance, a)
		}
		if a.IsOverdrawn() {
			sum.Overdrawn = append(sum.Overdrawn, a)
		}
	}
	byName := func(list []Account) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	byName(sum.LowBalance)
	byName(sum.Overdrawn)
	return sum
}

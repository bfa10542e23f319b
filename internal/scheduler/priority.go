// Package scheduler ranks debt instruments by urgency and splits a payment
// pool across them. Everything here is recomputed from instrument snapshots
// and a clock; nothing is persisted.
package scheduler

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/journal"
)

// DueState is the position of an instrument relative to its due date.
type DueState string

const (
	StateNone     DueState = "none"
	StateUpcoming DueState = "upcoming"
	StateDueToday DueState = "due_today"
	StateOverdue  DueState = "overdue"
)

// Priority orders obligations for user attention.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityUrgent   Priority = "urgent"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// DaysUntil counts UTC calendar days from now to due. Past dates are negative.
func DaysUntil(now, due time.Time) int {
	return int(journal.Day(due).Sub(journal.Day(now)).Hours() / 24)
}

// Classify derives the due state of an obligation. Settled debts and
// instruments without a due date are StateNone.
func Classify(now, due time.Time, remaining decimal.Decimal) DueState {
	if !remaining.IsPositive() || due.IsZero() {
		return StateNone
	}
	switch days := DaysUntil(now, due); {
	case days < 0:
		return StateOverdue
	case days == 0:
		return StateDueToday
	default:
		return StateUpcoming
	}
}

// PriorityOf maps overdue status and distance to the due date to a priority.
func PriorityOf(overdue bool, daysUntil int) Priority {
	switch {
	case overdue:
		return PriorityCritical
	case daysUntil <= 3:
		return PriorityUrgent
	case daysUntil <= 7:
		return PriorityHigh
	case daysUntil <= 14:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Payment is an instrument due within a horizon.
type Payment struct {
	InstrumentID     string
	OwnerID          string
	Kind             debt.Kind
	Name             string
	Issuer           string
	Currency         string
	DueDate          time.Time
	DaysUntil        int
	State            DueState
	Priority         Priority
	MinimumPayment   decimal.Decimal
	RemainingBalance decimal.Decimal
	InterestRate     decimal.Decimal
}

// Overdue reports whether the payment date has passed.
func (p Payment) Overdue() bool { return p.State == StateOverdue }

// Upcoming selects active instruments with an open balance that are past due
// or due within horizonDays. Overdue payments come first, then the rest by
// ascending days until due; ties are broken by name and ID.
func Upcoming(instruments []debt.Instrument, now time.Time, horizonDays int) []Payment {
	var out []Payment
	for _, inst := range instruments {
		if !inst.Active {
			continue
		}
		state := Classify(now, inst.NextDueDate, inst.RemainingBalance)
		if state == StateNone {
			continue
		}
		days := DaysUntil(now, inst.NextDueDate)
		if days > horizonDays {
			continue
		}
		out = append(out, Payment{
			InstrumentID:     inst.ID,
			OwnerID:          inst.OwnerID,
			Kind:             inst.Kind,
			Name:             inst.Name,
			Issuer:           inst.Issuer,
			Currency:         inst.Currency,
			DueDate:          journal.Day(inst.NextDueDate),
			DaysUntil:        days,
			State:            state,
			Priority:         PriorityOf(state == StateOverdue, days),
			MinimumPayment:   minimumOf(inst),
			RemainingBalance: inst.RemainingBalance,
			InterestRate:     inst.InterestRate,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		pa, pb := out[a], out[b]
		if pa.Overdue() != pb.Overdue() {
			return pa.Overdue()
		}
		if pa.DaysUntil != pb.DaysUntil {
			return pa.DaysUntil < pb.DaysUntil
		}
		if pa.Name != pb.Name {
			return pa.Name < pb.Name
		}
		return pa.InstrumentID < pb.InstrumentID
	})
	return out
}

// minimumOf is the amount required this period: the periodic payment, or the
// remaining balance when less is owed.
func minimumOf(inst debt.Instrument) decimal.Decimal {
	return decimal.Min(inst.PeriodicPayment, inst.RemainingBalance)
}

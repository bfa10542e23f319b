package scheduler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/debt"
)

// CalendarEntry is an instrument placed on a calendar day.
type CalendarEntry struct {
	InstrumentID     string
	Kind             debt.Kind
	Name             string
	MinimumPayment   decimal.Decimal
	RemainingBalance decimal.Decimal
}

// CalendarDay holds the payments falling on one day of the month.
type CalendarDay struct {
	Day      int
	Date     time.Time
	Payments []CalendarEntry
}

// Calendar lays out a month of payment obligations.
type Calendar struct {
	Year                 int
	Month                time.Month
	Days                 []CalendarDay
	TotalMinimumPayments decimal.Decimal
	PaymentCount         int
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BuildCalendar places every active instrument with an open balance on the day
// matching its due day-of-month. Due days past the end of a short month land
// on its last day. Every day of the month is present, even when empty.
func BuildCalendar(instruments []debt.Instrument, year int, month time.Month) Calendar {
	last := DaysIn(year, month)
	cal := Calendar{Year: year, Month: month, Days: make([]CalendarDay, last)}
	for i := range cal.Days {
		cal.Days[i] = CalendarDay{
			Day:      i + 1,
			Date:     time.Date(year, month, i+1, 0, 0, 0, 0, time.UTC),
			Payments: []CalendarEntry{},
		}
	}

	for _, inst := range instruments {
		if !inst.Active || !inst.RemainingBalance.IsPositive() || inst.NextDueDate.IsZero() {
			continue
		}
		day := inst.NextDueDate.UTC().Day()
		if day > last {
			day = last
		}
		minimum := minimumOf(inst)
		cal.Days[day-1].Payments = append(cal.Days[day-1].Payments, CalendarEntry{
			InstrumentID:     inst.ID,
			Kind:             inst.Kind,
			Name:             inst.Name,
			MinimumPayment:   minimum,
			RemainingBalance: inst.RemainingBalance,
		})
		cal.TotalMinimumPayments = cal.TotalMinimumPayments.Add(minimum)
		cal.PaymentCount++
	}
	return cal
}

package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/logging"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var (
	now        = time.Date(2024, 2, 10, 18, 30, 0, 0, time.UTC)
	decimalEq  = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	dueIn      = func(days int) time.Time { return time.Date(2024, 2, 10+days, 9, 0, 0, 0, time.UTC) }
	threeDebts = []debt.Instrument{
		{ID: "d1", Name: "Loan", PeriodicPayment: dec(100), RemainingBalance: dec(5000), InterestRate: dec(5), Active: true},
		{ID: "d2", Name: "Card", PeriodicPayment: dec(150), RemainingBalance: dec(5000), InterestRate: dec(20), Active: true},
		{ID: "d3", Name: "Phone", PeriodicPayment: dec(200), RemainingBalance: dec(5000), InterestRate: dec(10), Active: true},
	}
)

func instrument(id, name string, due time.Time) debt.Instrument {
	return debt.Instrument{
		ID: id, OwnerID: "owner-1", Kind: debt.KindCreditCard, Name: name, Currency: "TRY",
		PeriodicPayment: dec(500), RemainingBalance: dec(3000), NextDueDate: due, Active: true,
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		due       time.Time
		remaining decimal.Decimal
		want      DueState
	}{
		{"settled", dueIn(-5), decimal.Zero, StateNone},
		{"no due date", time.Time{}, dec(10), StateNone},
		{"yesterday", dueIn(-1), dec(10), StateOverdue},
		{"earlier today", time.Date(2024, 2, 10, 0, 1, 0, 0, time.UTC), dec(10), StateDueToday},
		{"tomorrow", dueIn(1), dec(10), StateUpcoming},
	}
	for _, tc := range cases {
		if got := Classify(now, tc.due, tc.remaining); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestPriorityOf(t *testing.T) {
	cases := []struct {
		overdue bool
		days    int
		want    Priority
	}{
		{true, -10, PriorityCritical},
		{true, 5, PriorityCritical},
		{false, 0, PriorityUrgent},
		{false, 3, PriorityUrgent},
		{false, 4, PriorityHigh},
		{false, 7, PriorityHigh},
		{false, 8, PriorityMedium},
		{false, 14, PriorityMedium},
		{false, 15, PriorityLow},
	}
	for _, tc := range cases {
		for i := 0; i < 2; i++ {
			if got := PriorityOf(tc.overdue, tc.days); got != tc.want {
				t.Fatalf("PriorityOf(%v, %d) = %s, want %s", tc.overdue, tc.days, got, tc.want)
			}
		}
	}
}

func TestUpcomingOrdersOverdueFirst(t *testing.T) {
	paid := instrument("paid", "Paid", dueIn(-3))
	paid.RemainingBalance = decimal.Zero
	inactive := instrument("inactive", "Inactive", dueIn(1))
	inactive.Active = false

	payments := Upcoming([]debt.Instrument{
		instrument("far", "Far", dueIn(20)),
		instrument("b", "Beta", dueIn(2)),
		instrument("a", "Alpha", dueIn(2)),
		instrument("late", "Late", dueIn(-4)),
		instrument("today", "Today", dueIn(0)),
		paid,
		inactive,
	}, now, 14)

	var got []string
	for _, p := range payments {
		got = append(got, p.InstrumentID)
	}
	if diff := cmp.Diff([]string{"late", "today", "a", "b"}, got); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if payments[0].Priority != PriorityCritical || payments[0].DaysUntil != -4 || !payments[0].Overdue() {
		t.Fatalf("unexpected overdue payment %+v", payments[0])
	}
	if payments[1].State != StateDueToday || payments[1].Priority != PriorityUrgent {
		t.Fatalf("unexpected due-today payment %+v", payments[1])
	}
}

func TestMinimumIsCappedByRemainingBalance(t *testing.T) {
	inst := instrument("x", "Nearly done", dueIn(1))
	inst.RemainingBalance = dec(120)
	payments := Upcoming([]debt.Instrument{inst}, now, 7)
	if len(payments) != 1 || !payments[0].MinimumPayment.Equal(dec(120)) {
		t.Fatalf("unexpected minimum %+v", payments)
	}
}

func TestBuildRemindersInTurkishAndEnglish(t *testing.T) {
	payments := Upcoming([]debt.Instrument{
		instrument("late", "Bonus", dueIn(-1)),
		instrument("today", "Axess", dueIn(0)),
		instrument("tomorrow", "World", dueIn(1)),
		instrument("soon", "Maximum", dueIn(5)),
		instrument("later", "Paraf", dueIn(10)),
	}, now, 30)

	tr := BuildReminders(payments, NewPrinter("tr-TR"))
	if len(tr) != 4 {
		t.Fatalf("expected 4 reminders within a week, got %d", len(tr))
	}
	wantTR := []struct {
		severity Severity
		title    string
		message  string
	}{
		{SeverityError, "Geciken Ödeme!", "Bonus ödemesi gecikmiş! Minimum ödeme: 500.00 TRY"},
		{SeverityWarning, "Ödeme Hatırlatması", "Axess ödemesi bugün! Minimum ödeme: 500.00 TRY"},
		{SeverityWarning, "Ödeme Hatırlatması", "World ödemesi yarın. Minimum ödeme: 500.00 TRY"},
		{SeverityInfo, "Yaklaşan Ödeme", "Maximum ödemesi 5 gün sonra. Minimum ödeme: 500.00 TRY"},
	}
	for i, want := range wantTR {
		got := tr[i]
		if got.Severity != want.severity || got.Title != want.title || got.Message != want.message {
			t.Fatalf("reminder %d: got %s %q %q", i, got.Severity, got.Title, got.Message)
		}
	}

	en := BuildReminders(payments, NewPrinter("en"))
	if en[0].Title != "Overdue payment!" || en[3].Message != "Maximum payment is due in 5 days. Minimum payment: 500.00 TRY" {
		t.Fatalf("unexpected english reminders %q / %q", en[0].Title, en[3].Message)
	}

	if en[0].Currency != "TRY" {
		t.Fatalf("reminder currency %q", en[0].Currency)
	}
	bare := payments[0]
	bare.Currency = ""
	if got := BuildReminders([]Payment{bare}, NewPrinter("en"))[0].Message; got != "Bonus payment is overdue! Minimum payment: 500.00" {
		t.Fatalf("reminder without currency %q", got)
	}

	fallback := BuildReminders(payments[:1], NewPrinter("not a locale"))
	if fallback[0].Title != "Overdue payment!" {
		t.Fatalf("expected english fallback, got %q", fallback[0].Title)
	}
}

func TestBuildCalendarClampsShortMonths(t *testing.T) {
	monthEnd := instrument("end", "Month end", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	mid := instrument("mid", "Mid", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	settled := instrument("settled", "Settled", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	settled.RemainingBalance = decimal.Zero

	cal := BuildCalendar([]debt.Instrument{monthEnd, mid, settled}, 2024, time.February)
	if len(cal.Days) != 29 {
		t.Fatalf("expected 29 days, got %d", len(cal.Days))
	}
	for i, d := range cal.Days {
		if d.Day != i+1 || d.Payments == nil {
			t.Fatalf("day %d malformed: %+v", i+1, d)
		}
	}
	if got := cal.Days[28].Payments; len(got) != 1 || got[0].InstrumentID != "end" {
		t.Fatalf("month-end payment not on the 29th: %+v", got)
	}
	if got := cal.Days[14].Payments; len(got) != 1 || got[0].InstrumentID != "mid" {
		t.Fatalf("mid-month payment not on the 15th: %+v", got)
	}
	if cal.PaymentCount != 2 || !cal.TotalMinimumPayments.Equal(dec(1000)) {
		t.Fatalf("count %d total %s", cal.PaymentCount, cal.TotalMinimumPayments)
	}
	if DaysIn(2023, time.February) != 28 || DaysIn(2024, time.December) != 31 {
		t.Fatal("DaysIn miscounts")
	}
}

func TestAllocateSendsSurplusToHighestRate(t *testing.T) {
	dist, err := Allocate(threeDebts, dec(600))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	var extras []decimal.Decimal
	for _, a := range dist.Allocations {
		extras = append(extras, a.Extra)
	}
	if diff := cmp.Diff([]decimal.Decimal{dec(0), dec(150), dec(0)}, extras, decimalEq); diff != "" {
		t.Fatalf("extras (-want +got):\n%s", diff)
	}
	want := DistributionSummary{TotalAvailable: dec(600), TotalMinimum: dec(450), TotalExtra: dec(150), Unallocated: dec(0)}
	if diff := cmp.Diff(want, dist.Summary, decimalEq); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
}

func TestAllocateCapsExtraAtRemainingBalance(t *testing.T) {
	debts := append([]debt.Instrument(nil), threeDebts...)
	debts[1].RemainingBalance = dec(250)

	dist, err := Allocate(debts, dec(600))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	card, phone := dist.Allocations[1], dist.Allocations[2]
	if !card.Extra.Equal(dec(100)) || !card.Total.Equal(dec(250)) {
		t.Fatalf("card allocation %+v", card)
	}
	if !phone.Extra.Equal(dec(50)) || !phone.Total.Equal(dec(250)) {
		t.Fatalf("phone allocation %+v", phone)
	}
}

func TestAllocateReportsShortfall(t *testing.T) {
	_, err := Allocate(threeDebts, dec(300))
	var short *errs.ShortfallError
	if !errors.As(err, &short) {
		t.Fatalf("expected shortfall, got %v", err)
	}
	want := errs.ShortfallError{Required: dec(450), Available: dec(300), Shortfall: dec(150)}
	if diff := cmp.Diff(want, *short, decimalEq); diff != "" {
		t.Fatalf("shortfall (-want +got):\n%s", diff)
	}
}

func TestShortfallCountsOnlyWhatIsStillOwed(t *testing.T) {
	debts := []debt.Instrument{
		{ID: "a", Name: "Almost paid", PeriodicPayment: dec(100), RemainingBalance: dec(40), InterestRate: dec(30), Active: true},
		{ID: "b", Name: "Mortgage", PeriodicPayment: dec(200), RemainingBalance: dec(5000), InterestRate: dec(3), Active: true},
	}

	_, err := Allocate(debts, dec(200))
	var short *errs.ShortfallError
	if !errors.As(err, &short) {
		t.Fatalf("expected shortfall, got %v", err)
	}
	// 40 still owed on the first debt, not its periodic 100.
	want := errs.ShortfallError{Required: dec(240), Available: dec(200), Shortfall: dec(40)}
	if diff := cmp.Diff(want, *short, decimalEq); diff != "" {
		t.Fatalf("shortfall mismatch (-want +got):\n%s", diff)
	}

	dist, err := Allocate(debts, dec(240))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !dist.Allocations[0].Total.Equal(dec(40)) || !dist.Allocations[1].Total.Equal(dec(200)) {
		t.Fatalf("unexpected allocations %+v", dist.Allocations)
	}
}

func TestAllocateLeavesUnallocatedWhenDebtsRunOut(t *testing.T) {
	debts := []debt.Instrument{
		{ID: "a", PeriodicPayment: dec(100), RemainingBalance: dec(300), InterestRate: dec(10)},
		{ID: "b", PeriodicPayment: dec(100), RemainingBalance: dec(60), InterestRate: dec(30)},
	}
	dist, err := Allocate(debts, dec(1000))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	total := decimal.Zero
	for _, a := range dist.Allocations {
		if a.Total.GreaterThan(a.RemainingBalance) {
			t.Fatalf("allocation %s exceeds its balance: %s > %s", a.InstrumentID, a.Total, a.RemainingBalance)
		}
		total = total.Add(a.Total)
	}
	if !dist.Summary.Unallocated.Equal(dec(640)) || !total.Add(dist.Summary.Unallocated).Equal(dec(1000)) {
		t.Fatalf("allocated %s unallocated %s", total, dist.Summary.Unallocated)
	}
}

func TestAllocateValidatesInput(t *testing.T) {
	if _, err := Allocate(threeDebts, decimal.Zero); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for zero pool, got %v", err)
	}
	if _, err := Allocate(nil, dec(10)); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for no instruments, got %v", err)
	}
}

type staticSource struct {
	instruments []debt.Instrument
	err         error
}

func (s staticSource) ActiveInstruments(context.Context, string) ([]debt.Instrument, error) {
	return s.instruments, s.err
}

func TestPrioritizerUsesClockAndLocale(t *testing.T) {
	src := staticSource{instruments: []debt.Instrument{instrument("x", "Bonus", dueIn(2))}}
	p := NewPrioritizer(src, logging.Discard(), "tr").WithClock(func() time.Time { return now })

	reminders, err := p.Reminders(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if len(reminders) != 1 || !strings.HasPrefix(reminders[0].Message, "Bonus ödemesi 2 gün sonra") {
		t.Fatalf("unexpected reminders %+v", reminders)
	}
	if _, err := p.ListUpcoming(context.Background(), "", 7); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error without owner, got %v", err)
	}
}

func TestPrioritizerWrapsSourceFailures(t *testing.T) {
	p := NewPrioritizer(staticSource{err: errors.New("dial tcp: refused")}, logging.Discard(), "en")
	_, err := p.Distribute(context.Background(), "owner-1", dec(100))
	if errs.KindOf(err) != errs.KindOperationFailed {
		t.Fatalf("expected operation failure, got %v", err)
	}
}

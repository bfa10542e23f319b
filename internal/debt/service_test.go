package debt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
	"github.com/ledgerly/ledgerly/internal/logging"
	"github.com/ledgerly/ledgerly/internal/storage/memory"
)

const owner = "owner-1"

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newService() (*debt.Service, *memory.JournalStore) {
	db := memory.New()
	return debt.NewService(memory.NewInstrumentStore(db), logging.Discard()), memory.NewJournalStore(db)
}

func createCard(t *testing.T, svc *debt.Service, due time.Time) debt.Instrument {
	t.Helper()
	inst, err := svc.Create(context.Background(), debt.CreateInput{
		OwnerID:          owner,
		Kind:             debt.KindCreditCard,
		Name:             "Bonus Card",
		Issuer:           "Garanti",
		TotalAmount:      dec(5000),
		RemainingBalance: dec(3000),
		PeriodicPayment:  dec(500),
		InterestRate:     decimal.RequireFromString("3.5"),
		NextDueDate:      due,
		TotalPeriods:     10,
	})
	if err != nil {
		t.Fatalf("create instrument: %v", err)
	}
	return inst
}

func TestCreateDefaultsRemainingToTotal(t *testing.T) {
	svc, _ := newService()
	inst, err := svc.Create(context.Background(), debt.CreateInput{
		OwnerID: owner, Kind: debt.KindLand, Name: "Plot", TotalAmount: dec(12000),
		PeriodicPayment: dec(1000), NextDueDate: time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !inst.RemainingBalance.Equal(dec(12000)) || !inst.Active || inst.Currency != debt.DefaultCurrency {
		t.Fatalf("unexpected instrument %+v", inst)
	}
	if want := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC); !inst.NextDueDate.Equal(want) {
		t.Fatalf("due date %s, want %s", inst.NextDueDate, want)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService()
	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	base := debt.CreateInput{OwnerID: owner, Kind: debt.KindInstallment, Name: "Phone", TotalAmount: dec(100), PeriodicPayment: dec(10), NextDueDate: due}

	mutate := map[string]func(in *debt.CreateInput){
		"unknown kind":         func(in *debt.CreateInput) { in.Kind = "mortgage" },
		"zero total":           func(in *debt.CreateInput) { in.TotalAmount = decimal.Zero },
		"zero periodic":        func(in *debt.CreateInput) { in.PeriodicPayment = decimal.Zero },
		"negative rate":        func(in *debt.CreateInput) { in.InterestRate = dec(-1) },
		"missing due date":     func(in *debt.CreateInput) { in.NextDueDate = time.Time{} },
		"remaining over total": func(in *debt.CreateInput) { in.RemainingBalance = dec(101) },
		"sub-cent periodic":    func(in *debt.CreateInput) { in.PeriodicPayment = decimal.RequireFromString("9.999") },
		"sub-cent total":       func(in *debt.CreateInput) { in.TotalAmount = decimal.RequireFromString("100.001") },
		"malformed currency":   func(in *debt.CreateInput) { in.Currency = "TL" },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			in := base
			fn(&in)
			if _, err := svc.Create(context.Background(), in); !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRecordPaymentAdvancesPeriod(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	inst := createCard(t, svc, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))

	res, err := svc.RecordPayment(ctx, debt.PaymentInput{OwnerID: owner, InstrumentID: inst.ID, Amount: dec(500)})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	got := res.Instrument
	if !got.RemainingBalance.Equal(dec(2500)) || got.PaidPeriods != 1 {
		t.Fatalf("remaining %s paid %d", got.RemainingBalance, got.PaidPeriods)
	}
	if want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC); !got.NextDueDate.Equal(want) {
		t.Fatalf("due %s, want %s", got.NextDueDate, want)
	}
	if res.Transaction.Type != journal.TypePayment || res.Transaction.InstrumentID != inst.ID ||
		res.Transaction.Category != string(debt.KindCreditCard) || res.Transaction.Description != "Payment: Bonus Card" {
		t.Fatalf("unexpected entry %+v", res.Transaction)
	}

	list, total, err := store.Find(ctx, owner, journal.Filter{InstrumentID: inst.ID})
	if err != nil || total != 1 || !list[0].Amount.Equal(dec(500)) {
		t.Fatalf("journal entries %+v %v", list, err)
	}
}

func TestPartialPaymentKeepsDueDate(t *testing.T) {
	svc, _ := newService()
	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	inst := createCard(t, svc, due)

	res, err := svc.RecordPayment(context.Background(), debt.PaymentInput{OwnerID: owner, InstrumentID: inst.ID, Amount: dec(200)})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !res.Instrument.NextDueDate.Equal(due) || res.Instrument.PaidPeriods != 0 {
		t.Fatalf("partial payment moved the period: %+v", res.Instrument)
	}
}

func TestOverpaymentReportsMaxPayable(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	inst := createCard(t, svc, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	_, err := svc.RecordPayment(ctx, debt.PaymentInput{OwnerID: owner, InstrumentID: inst.ID, Amount: dec(3001)})
	var verr *errs.ValidationError
	if !errors.As(err, &verr) || verr.MaxPayable == nil || !verr.MaxPayable.Equal(dec(3000)) {
		t.Fatalf("expected max payable 3000, got %v", err)
	}
	if _, total, _ := store.Find(ctx, owner, journal.Filter{}); total != 0 {
		t.Fatalf("rejected payment wrote %d entries", total)
	}
}

func TestPaymentOnForeignInstrumentIsNotFound(t *testing.T) {
	svc, _ := newService()
	inst := createCard(t, svc, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	_, err := svc.RecordPayment(context.Background(), debt.PaymentInput{OwnerID: "owner-2", InstrumentID: inst.ID, Amount: dec(10)})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteHardOrSoft(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	fresh := createCard(t, svc, due)
	paid := createCard(t, svc, due)
	if _, err := svc.RecordPayment(ctx, debt.PaymentInput{OwnerID: owner, InstrumentID: paid.ID, Amount: dec(100)}); err != nil {
		t.Fatalf("pay: %v", err)
	}

	deleted, deactivated, err := svc.Delete(ctx, owner, fresh.ID)
	if err != nil || !deleted || deactivated {
		t.Fatalf("expected hard delete, got %v %v %v", deleted, deactivated, err)
	}
	deleted, deactivated, err = svc.Delete(ctx, owner, paid.ID)
	if err != nil || deleted || !deactivated {
		t.Fatalf("expected deactivation, got %v %v %v", deleted, deactivated, err)
	}

	active, err := svc.ActiveInstruments(ctx, owner)
	if err != nil || len(active) != 0 {
		t.Fatalf("expected no active instruments, got %d %v", len(active), err)
	}
	if _, err := svc.RecordPayment(ctx, debt.PaymentInput{OwnerID: owner, InstrumentID: paid.ID, Amount: dec(1)}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("inactive instrument accepted a payment: %v", err)
	}
}

func TestOwnersWithOpenBalances(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	inst := createCard(t, svc, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	owners, err := svc.OwnersWithOpenBalances(ctx)
	if err != nil || len(owners) != 1 || owners[0] != owner {
		t.Fatalf("owners %v %v", owners, err)
	}
	if _, err := svc.RecordPayment(ctx, debt.PaymentInput{OwnerID: owner, InstrumentID: inst.ID, Amount: dec(3000)}); err != nil {
		t.Fatalf("pay off: %v", err)
	}
	owners, err = svc.OwnersWithOpenBalances(ctx)
	if err != nil || len(owners) != 0 {
		t.Fatalf("expected no owners after payoff, got %v %v", owners, err)
	}
}

func TestAddMonthClampsDay(t *testing.T) {
	cases := []struct{ in, want time.Time }{
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := debt.AddMonth(tc.in); !got.Equal(tc.want) {
			t.Fatalf("AddMonth(%s) = %s, want %s", tc.in.Format(time.DateOnly), got.Format(time.DateOnly), tc.want.Format(time.DateOnly))
		}
	}
}

func TestProgressHelpers(t *testing.T) {
	inst := debt.Instrument{TotalPeriods: 12, PaidPeriods: 3, TotalAmount: dec(1200), RemainingBalance: dec(900)}
	if inst.RemainingPeriods() != 9 {
		t.Fatalf("remaining periods %d", inst.RemainingPeriods())
	}
	if inst.CompletionPercent() != 25 {
		t.Fatalf("completion %d", inst.CompletionPercent())
	}
}

func TestCurrencyDefaultsAndNormalizes(t *testing.T) {
	db := memory.New()
	svc := debt.NewService(memory.NewInstrumentStore(db), logging.Discard()).WithCurrency("eur")
	ctx := context.Background()
	in := debt.CreateInput{OwnerID: owner, Kind: debt.KindInstallment, Name: "Laptop", TotalAmount: dec(900),
		PeriodicPayment: dec(100), NextDueDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}

	inst, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Currency != "EUR" {
		t.Fatalf("currency %q, want EUR", inst.Currency)
	}
	in.Currency = " usd "
	if inst, err = svc.Create(ctx, in); err != nil || inst.Currency != "USD" {
		t.Fatalf("explicit currency: %q %v", inst.Currency, err)
	}
}

func TestPaymentRejectsSubCentAmount(t *testing.T) {
	svc, entries := newService()
	inst := createCard(t, svc, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))

	_, err := svc.RecordPayment(context.Background(), debt.PaymentInput{OwnerID: owner, InstrumentID: inst.ID, Amount: decimal.RequireFromString("100.005")})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, err := svc.Instrument(context.Background(), owner, inst.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.RemainingBalance.Equal(dec(3000)) {
		t.Fatalf("remaining %s, want 3000", got.RemainingBalance)
	}
	list, _, err := entries.Find(context.Background(), owner, journal.Filter{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no payment entries, got %d", len(list))
	}
}

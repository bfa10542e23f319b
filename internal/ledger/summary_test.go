package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
	"github.com/ledgerly/ledgerly/internal/ledger"
)

func TestSubCentAmountsAreRejected(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	a := open(t, svc, ledger.CreateAccountInput{Name: "A", Type: ledger.TypeChecking, InitialBalance: dec(100)})
	b := open(t, svc, ledger.CreateAccountInput{Name: "B", Type: ledger.TypeChecking, InitialBalance: dec(100)})
	half := decimal.RequireFromString("0.005")

	if _, err := svc.Transfer(ctx, ledger.TransferInput{OwnerID: owner, SourceID: a.ID, DestinationID: b.ID, Amount: half}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("transfer: expected validation error, got %v", err)
	}
	if _, err := svc.Credit(ctx, ledger.CreditInput{OwnerID: owner, AccountID: a.ID, Amount: half}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("credit: expected validation error, got %v", err)
	}
	if _, err := svc.Debit(ctx, ledger.DebitInput{OwnerID: owner, AccountID: a.ID, Amount: decimal.RequireFromString("10.999")}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("debit: expected validation error, got %v", err)
	}
	if _, err := svc.SetBalance(ctx, ledger.SetBalanceInput{OwnerID: owner, AccountID: a.ID, Value: half, Operation: ledger.BalanceAdd}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("set balance: expected validation error, got %v", err)
	}

	for _, acc := range []ledger.Account{a, b} {
		got, err := svc.Account(ctx, owner, acc.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Balance.Equal(dec(100)) {
			t.Fatalf("%s balance %s, want 100", got.Name, got.Balance)
		}
	}
	if list := entries(t, store, journal.Filter{}); len(list) != 0 {
		t.Fatalf("expected no journal entries, got %d", len(list))
	}

	res, err := svc.Transfer(ctx, ledger.TransferInput{OwnerID: owner, SourceID: a.ID, DestinationID: b.ID, Amount: decimal.RequireFromString("0.01")})
	if err != nil {
		t.Fatalf("one cent transfer: %v", err)
	}
	if total := res.Source.Balance.Add(res.Destination.Balance); !total.Equal(dec(200)) {
		t.Fatalf("total %s, want 200", total)
	}
}

func TestUpdateAccount(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	empty := open(t, svc, ledger.CreateAccountInput{Name: "Spare", Type: ledger.TypeCash})
	funded := open(t, svc, ledger.CreateAccountInput{Name: "Main", Type: ledger.TypeChecking, InitialBalance: dec(50)})
	line := open(t, svc, ledger.CreateAccountInput{Name: "Line", Type: ledger.TypeOverdraft, OverdraftLimit: dec(1000)})
	if _, err := svc.Debit(ctx, ledger.DebitInput{OwnerID: owner, AccountID: line.ID, Amount: dec(400)}); err != nil {
		t.Fatalf("draw: %v", err)
	}

	travel, usd := "  Travel  ", "usd"
	got, err := svc.UpdateAccount(ctx, ledger.UpdateAccountInput{OwnerID: owner, AccountID: empty.ID, Name: &travel, Currency: &usd})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Travel" || got.Currency != "USD" || got.Version != empty.Version+1 {
		t.Fatalf("unexpected account %+v", got)
	}

	limit := dec(500)
	got, err = svc.UpdateAccount(ctx, ledger.UpdateAccountInput{OwnerID: owner, AccountID: line.ID, OverdraftLimit: &limit})
	if err != nil {
		t.Fatalf("resize line: %v", err)
	}
	if !got.OverdraftLimit.Equal(limit) || !got.AvailableCredit().Equal(dec(100)) {
		t.Fatalf("unexpected line %+v", got)
	}

	blank, eur, low, cents := " ", "EUR", dec(300), decimal.RequireFromString("600.001")
	cases := map[string]ledger.UpdateAccountInput{
		"nothing to update":        {OwnerID: owner, AccountID: empty.ID},
		"blank name":               {OwnerID: owner, AccountID: empty.ID, Name: &blank},
		"currency with balance":    {OwnerID: owner, AccountID: funded.ID, Currency: &eur},
		"limit on checking":        {OwnerID: owner, AccountID: funded.ID, OverdraftLimit: &limit},
		"limit below drawn":        {OwnerID: owner, AccountID: line.ID, OverdraftLimit: &low},
		"sub-cent limit":           {OwnerID: owner, AccountID: line.ID, OverdraftLimit: &cents},
		"currency with drawn line": {OwnerID: owner, AccountID: line.ID, Currency: &eur},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.UpdateAccount(ctx, in); !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := svc.UpdateAccount(ctx, ledger.UpdateAccountInput{OwnerID: "someone-else", AccountID: funded.ID, Name: &travel}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for foreign account, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	open(t, svc, ledger.CreateAccountInput{Name: "Main", Type: ledger.TypeChecking, InitialBalance: dec(1500)})
	open(t, svc, ledger.CreateAccountInput{Name: "Pocket", Type: ledger.TypeCash, InitialBalance: dec(40)})
	minus := open(t, svc, ledger.CreateAccountInput{Name: "Bills", Type: ledger.TypeChecking, InitialBalance: dec(10)})
	if _, err := svc.Debit(ctx, ledger.DebitInput{OwnerID: owner, AccountID: minus.ID, Amount: dec(30), AllowNegative: true}); err != nil {
		t.Fatalf("debit: %v", err)
	}
	line := open(t, svc, ledger.CreateAccountInput{Name: "Line", Type: ledger.TypeOverdraft, OverdraftLimit: dec(1000)})
	if _, err := svc.Debit(ctx, ledger.DebitInput{OwnerID: owner, AccountID: line.ID, Amount: dec(250)}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	open(t, svc, ledger.CreateAccountInput{Name: "Dollars", Type: ledger.TypeSavings, InitialBalance: dec(70), Currency: "USD"})
	open(t, svc, ledger.CreateAccountInput{OwnerID: "someone-else", Name: "Other", Type: ledger.TypeCash, InitialBalance: dec(5)})

	sum, err := svc.Summary(ctx, owner)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// 1500 + 40 - 20; the overdraft line contributes zero.
	if got := sum.Balances["TRY"]; !got.Equal(dec(1520)) {
		t.Fatalf("TRY balance %s, want 1520", got)
	}
	if got := sum.Balances["USD"]; !got.Equal(dec(70)) {
		t.Fatalf("USD balance %s, want 70", got)
	}
	if got := sum.OverdraftUsed["TRY"]; !got.Equal(dec(250)) {
		t.Fatalf("overdraft used %s, want 250", got)
	}
	checking := sum.ByType[ledger.TypeChecking]
	if checking.Count != 2 || !checking.Balances["TRY"].Equal(dec(1480)) {
		t.Fatalf("unexpected checking summary %+v", checking)
	}
	if sum.ByType[ledger.TypeOverdraft].Count != 1 {
		t.Fatalf("expected one overdraft account, got %+v", sum.ByType[ledger.TypeOverdraft])
	}

	names := func(list []ledger.Account) []string {
		var out []string
		for _, a := range list {
			out = append(out, a.Name)
		}
		return out
	}
	if got := names(sum.LowBalance); len(got) != 2 || got[0] != "Dollars" || got[1] != "Pocket" {
		t.Fatalf("low balance accounts %v", got)
	}
	if got := names(sum.Overdrawn); len(got) != 2 || got[0] != "Bills" || got[1] != "Line" {
		t.Fatalf("overdrawn accounts %v", got)
	}
}
